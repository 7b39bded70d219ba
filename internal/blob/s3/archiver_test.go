package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

type fakeWriter struct {
	paths    []string
	payloads []string
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	f.payloads = append(f.payloads, buf.String())
	return nil
}

type fakeStore struct {
	rows []domain.ArbitrageOpportunity
}

func (f *fakeStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error { return nil }

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	return nil, nil
}

func (f *fakeStore) TopByProfit(ctx context.Context, since time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	return nil, nil
}

func (f *fakeStore) Summary(ctx context.Context, since time.Time) (domain.OpportunitySummary, error) {
	return domain.OpportunitySummary{}, nil
}

func (f *fakeStore) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	var out []domain.ArbitrageOpportunity
	for _, r := range f.rows {
		if r.DetectedAt.Before(cutoff) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := f.rows[:0]
	var deleted int64
	for _, r := range f.rows {
		if r.DetectedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

func TestArchiveBefore(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	pair := domain.NewTradingPair("BTC", "USDT")
	store := &fakeStore{rows: []domain.ArbitrageOpportunity{
		{ID: "old-1", Pair: pair, BuyVenue: "a", SellVenue: "b", DetectedAt: now.Add(-48 * time.Hour)},
		{ID: "old-2", Pair: pair, BuyVenue: "b", SellVenue: "a", DetectedAt: now.Add(-36 * time.Hour)},
		{ID: "fresh", Pair: pair, BuyVenue: "a", SellVenue: "b", DetectedAt: now.Add(-time.Hour)},
	}}
	writer := &fakeWriter{}
	a := NewArchiver(writer, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	count, err := a.ArchiveBefore(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("archived %d rows, want 2", count)
	}
	if len(store.rows) != 1 || store.rows[0].ID != "fresh" {
		t.Errorf("store rows after archive = %v, want only the fresh row", store.rows)
	}
	if len(writer.paths) != 1 {
		t.Fatalf("got %d uploads, want 1", len(writer.paths))
	}
	if !strings.HasPrefix(writer.paths[0], "archive/opportunities/2026-08/") {
		t.Errorf("archive path = %q", writer.paths[0])
	}
	if lines := strings.Count(strings.TrimRight(writer.payloads[0], "\n"), "\n") + 1; lines != 2 {
		t.Errorf("JSONL payload has %d lines, want 2", lines)
	}
}

func TestArchiveBeforeNothingToDo(t *testing.T) {
	writer := &fakeWriter{}
	a := NewArchiver(writer, &fakeStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	count, err := a.ArchiveBefore(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 || len(writer.paths) != 0 {
		t.Errorf("count = %d uploads = %d, want zero of both", count, len(writer.paths))
	}
}
