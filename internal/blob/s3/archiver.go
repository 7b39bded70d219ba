package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// archiveBatchSize bounds how many rows one archive object holds.
const archiveBatchSize = 5000

// Archiver moves aged opportunity rows from the primary store to cold
// storage: batches are serialized to JSONL, uploaded, and only then deleted
// from the store.
type Archiver struct {
	writer domain.BlobWriter
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, store domain.OpportunityStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveBefore uploads every opportunity detected before the cutoff and
// deletes the archived rows. It returns the number of rows archived.
func (a *Archiver) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for batch := 0; ; batch++ {
		opps, err := a.store.OlderThan(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive query: %w", err)
		}
		if len(opps) == 0 {
			break
		}

		buf, err := marshalJSONL(opps)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive marshal: %w", err)
		}

		path := archivePath(cutoff, batch)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return total, fmt.Errorf("s3blob: archive upload: %w", err)
		}

		// Delete only up to the last uploaded row so a failure between batches
		// never drops unarchived data.
		last := opps[len(opps)-1].DetectedAt.Add(time.Nanosecond)
		deleted, err := a.store.DeleteOlderThan(ctx, last)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive prune: %w", err)
		}

		total += int64(len(opps))
		a.logger.Info("archived opportunity batch",
			slog.String("path", path),
			slog.Int("rows", len(opps)),
			slog.Int64("pruned", deleted))

		if len(opps) < archiveBatchSize {
			break
		}
	}
	return total, nil
}

// Run archives on the given interval until ctx is cancelled, keeping
// retention worth of history in the primary store.
func (a *Archiver) Run(ctx context.Context, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			if _, err := a.ArchiveBefore(ctx, cutoff); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archivePath builds the S3 key for one archive batch, partitioned by the
// cutoff's year-month.
//
//	archive/opportunities/2026-08/20260825T120000Z-000.jsonl
func archivePath(cutoff time.Time, batch int) string {
	return fmt.Sprintf("archive/opportunities/%s/%s-%03d.jsonl",
		cutoff.Format("2006-01"), cutoff.UTC().Format("20060102T150405Z"), batch)
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL(opps []domain.ArbitrageOpportunity) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, opp := range opps {
		if err := enc.Encode(opp); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
