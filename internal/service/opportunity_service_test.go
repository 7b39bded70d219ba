package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

type recordingStore struct {
	inserted []domain.ArbitrageOpportunity
	err      error
}

func (r *recordingStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, opp)
	return nil
}

func (r *recordingStore) Recent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	return r.inserted, nil
}

func (r *recordingStore) TopByProfit(ctx context.Context, since time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	return r.inserted, nil
}

func (r *recordingStore) Summary(ctx context.Context, since time.Time) (domain.OpportunitySummary, error) {
	return domain.OpportunitySummary{Count: int64(len(r.inserted))}, nil
}

func (r *recordingStore) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	return nil, nil
}

func (r *recordingStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type recordingBus struct {
	published []string
	appended  []string
	err       error
}

func (r *recordingBus) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if r.err != nil {
		return r.err
	}
	r.published = append(r.published, opp.ID)
	return nil
}

func (r *recordingBus) AppendOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if r.err != nil {
		return r.err
	}
	r.appended = append(r.appended, opp.ID)
	return nil
}

func (r *recordingBus) ReadOpportunities(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sample(id string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:        id,
		Pair:      domain.NewTradingPair("BTC", "USDT"),
		BuyVenue:  "binance",
		SellVenue: "kucoin",
	}
}

func TestRecordFansOut(t *testing.T) {
	store := &recordingStore{}
	bus := &recordingBus{}
	svc := NewOpportunityService(store, bus, nil, testLogger())

	if err := svc.Record(context.Background(), sample("opp-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d rows, want 1", len(store.inserted))
	}
	if len(bus.appended) != 1 || len(bus.published) != 1 {
		t.Errorf("bus appended=%d published=%d, want 1 each", len(bus.appended), len(bus.published))
	}
}

func TestRecordStoreFailureIsFatal(t *testing.T) {
	store := &recordingStore{err: errors.New("pool closed")}
	svc := NewOpportunityService(store, &recordingBus{}, nil, testLogger())

	if err := svc.Record(context.Background(), sample("opp-1")); err == nil {
		t.Fatal("expected error from failed insert")
	}
}

func TestRecordBusFailureIsNotFatal(t *testing.T) {
	store := &recordingStore{}
	bus := &recordingBus{err: errors.New("redis down")}
	svc := NewOpportunityService(store, bus, nil, testLogger())

	if err := svc.Record(context.Background(), sample("opp-1")); err != nil {
		t.Fatalf("bus failure should not fail the record: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Error("store write should still happen")
	}
}

func TestRecordBatchContinuesPastFailures(t *testing.T) {
	store := &recordingStore{}
	svc := NewOpportunityService(store, nil, nil, testLogger())

	batch := []domain.ArbitrageOpportunity{sample("a"), sample("b"), sample("c")}
	if err := svc.RecordBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 3 {
		t.Errorf("inserted %d rows, want 3", len(store.inserted))
	}
}

func TestQueriesWithoutStore(t *testing.T) {
	svc := NewOpportunityService(nil, nil, nil, testLogger())

	if _, err := svc.Recent(context.Background(), 10); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("Recent error = %v, want ErrUnavailable", err)
	}
	if _, err := svc.Summary(context.Background(), time.Now()); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("Summary error = %v, want ErrUnavailable", err)
	}
}
