package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

type memWriter struct {
	mu   sync.Mutex
	objs map[string][]byte
	fail string
}

func (w *memWriter) Put(_ context.Context, key string, body []byte, contentType string) error {
	if contentType != "application/json" {
		return errors.New("unexpected content type " + contentType)
	}
	if w.fail != "" && strings.HasSuffix(key, w.fail) {
		return errors.New("upload refused")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.objs == nil {
		w.objs = map[string][]byte{}
	}
	w.objs[key] = body
	return nil
}

func settled() *model.Snapshot {
	return &model.Snapshot{
		Meta: model.Meta{GameName: "Money Rush (Budget Race)"},
		Auth: model.Auth{AdminPIN: "4321"},
		Results: &model.Results{
			ComputedAt: time.Date(2026, 2, 1, 18, 30, 0, 0, time.UTC),
			Rows: []model.ResultRow{{
				Rank: 1, TeamID: "team_1", TeamName: "Bulls",
				AfterTax: decimal.RequireFromString("12345.67"),
			}},
		},
	}
}

func TestArchive_WritesResultsAndSnapshot(t *testing.T) {
	w := &memWriter{}
	a := New(w, "exports")

	if err := a.Archive(context.Background(), settled()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	dir := "exports/money-rush-budget-race/20260201T183000Z"
	res, ok := w.objs[dir+"/results.json"]
	if !ok {
		t.Fatalf("results.json missing, have %v", keys(w.objs))
	}
	var got model.Results
	if err := json.Unmarshal(res, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 1 || !got.Rows[0].AfterTax.Equal(decimal.RequireFromString("12345.67")) {
		t.Errorf("unexpected results %+v", got)
	}

	doc, ok := w.objs[dir+"/snapshot.json"]
	if !ok {
		t.Fatalf("snapshot.json missing, have %v", keys(w.objs))
	}
	if strings.Contains(string(doc), "4321") {
		t.Error("admin PIN leaked into the archive")
	}
}

func TestArchive_Errors(t *testing.T) {
	a := New(&memWriter{}, "")
	if err := a.Archive(context.Background(), &model.Snapshot{}); !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}

	a = New(&memWriter{fail: "snapshot.json"}, "")
	if err := a.Archive(context.Background(), settled()); err == nil {
		t.Error("expected upload failure to surface")
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Money Rush (Budget Race)": "money-rush-budget-race",
		"  BIZ 26!! ":              "biz-26",
		"plain":                    "plain",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("minio:9000", false); got != "http://minio:9000" {
		t.Errorf("got %s", got)
	}
	if got := normaliseEndpoint("s3.example.com", true); got != "https://s3.example.com" {
		t.Errorf("got %s", got)
	}
	if got := normaliseEndpoint("https://r2.example.com", false); got != "https://r2.example.com" {
		t.Errorf("got %s", got)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
