// Package archive exports the settled game to object storage when the game
// ends: the ranked results and the full snapshot that produced them.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/moneyrush/round-engine/internal/model"
)

// ErrNoResults is returned when the snapshot carries no settled results.
var ErrNoResults = errors.New("archive: snapshot has no results")

// Writer stores one object under key.
type Writer interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Archiver writes results.json and snapshot.json under
// <prefix>/<game>/<computedAt>/.
type Archiver struct {
	w      Writer
	prefix string
}

// New creates an archiver writing through w. prefix may be empty.
func New(w Writer, prefix string) *Archiver {
	return &Archiver{w: w, prefix: prefix}
}

// Archive uploads the results and the snapshot concurrently. The admin PIN
// is stripped from the exported snapshot.
func (a *Archiver) Archive(ctx context.Context, snap *model.Snapshot) error {
	if snap.Results == nil {
		return ErrNoResults
	}
	dir := a.Dir(snap)

	export := snap.Clone()
	export.Auth = model.Auth{}

	results, err := json.MarshalIndent(snap.Results, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode results: %w", err)
	}
	doc, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode snapshot: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.w.Put(gctx, path.Join(dir, "results.json"), results, "application/json")
	})
	g.Go(func() error {
		return a.w.Put(gctx, path.Join(dir, "snapshot.json"), doc, "application/json")
	})
	return g.Wait()
}

// Dir returns the object key directory for a settled snapshot.
func (a *Archiver) Dir(snap *model.Snapshot) string {
	game := snap.Meta.GameName
	if game == "" {
		game = "game"
	}
	stamp := snap.Results.ComputedAt.UTC().Format("20060102T150405Z")
	return path.Join(a.prefix, slug(game), stamp)
}

// slug keeps object keys to lowercase letters, digits and dashes.
func slug(s string) string {
	out := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			dash = false
		default:
			if !dash && len(out) > 0 {
				out = append(out, '-')
				dash = true
			}
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	return string(out)
}
