package database

import (
	"context"
	"fmt"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// InsertDisposalEvent appends one accepted event. Re-inserting the same id
// is a no-op so a retried write never duplicates a record.
func (d *Database) InsertDisposalEvent(ctx context.Context, ev models.DisposalEvent) error {
	_, err := d.DB.ExecContext(ctx,
		`INSERT INTO disposal_events (id, ts, label, class_id, confidence, bin, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
		ev.ID,
		ev.Timestamp,
		ev.Label,
		ev.ClassID,
		ev.Confidence,
		ev.BinName,
		ev.Verdict.Status(),
	)
	if err != nil {
		return fmt.Errorf("insert disposal event: %w", err)
	}
	return nil
}
