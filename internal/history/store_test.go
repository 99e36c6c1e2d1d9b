package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatbridge/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := domain.RelayRecord{
		ID:        "rec-1",
		Direction: domain.DirectionDiscordToTelegram,
		SourceID:  "100",
		DestID:    "5",
		Kind:      "text",
		Author:    "Ann",
		OK:        true,
	}
	if err := store.Add(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.ID != "rec-1" || r.Direction != domain.DirectionDiscordToTelegram ||
		r.SourceID != "100" || r.DestID != "5" || r.Kind != "text" ||
		r.Author != "Ann" || !r.OK {
		t.Errorf("record mismatch: %+v", r)
	}
	if r.CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := store.Add(ctx, domain.RelayRecord{
			ID:        "rec-" + string(rune('a'+i)),
			Direction: domain.DirectionTelegramToDiscord,
			SourceID:  "1",
			Kind:      "text",
			OK:        true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].ID != "rec-e" || got[2].ID != "rec-c" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestAdd_FailureRecordKeepsDetail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, domain.RelayRecord{
		ID:        "rec-f",
		Direction: domain.DirectionDiscordToTelegram,
		SourceID:  "100",
		Kind:      "photo",
		OK:        false,
		Detail:    "telegram: bad request",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].OK || got[0].Detail != "telegram: bad request" {
		t.Errorf("failure record: %+v", got[0])
	}
}

func TestRecent_EmptyLog(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty log, got %d records", len(got))
	}
}
