package store

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestCachedStore_FallsBackWhenCacheUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	primary := NewMemoryStore()
	s := NewCachedStore(primary, rdb, time.Minute, "test", logger)
	ctx := context.Background()

	if err := s.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save should succeed on the primary: %v", err)
	}
	if primary.Saves() != 1 {
		t.Errorf("primary saves = %d, want 1", primary.Saves())
	}
	if !strings.Contains(logs.String(), "snapshot cache refresh failed") {
		t.Errorf("cache failure not logged through the injected logger: %q", logs.String())
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load should fall back to the primary: %v", err)
	}
	if got.Teams[0].Name != "Bulls" {
		t.Errorf("unexpected snapshot %+v", got.Teams)
	}
}
