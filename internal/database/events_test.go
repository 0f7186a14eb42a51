package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// Requires a disposable Postgres: TEST_DATABASE_DSN=postgres://...
func TestDisposalEventsRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	db, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := db.DB.ExecContext(ctx, "TRUNCATE disposal_events"); err != nil {
		t.Fatalf("Failed to truncate: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	first := models.DisposalEvent{
		ID: uuid.New(), Timestamp: now, Label: "BOTTLE", ClassID: 39,
		Confidence: 0.8, BinName: "RECYCLING", Verdict: models.VerdictCorrect,
	}
	second := models.DisposalEvent{
		ID: uuid.New(), Timestamp: now.Add(5 * time.Second), Label: "BANANA", ClassID: 46,
		Confidence: 0.9, BinName: "RECYCLING", Verdict: models.VerdictContamination,
	}

	for _, ev := range []models.DisposalEvent{first, second, first} {
		if err := db.InsertDisposalEvent(ctx, ev); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	rows, err := listDisposalEvents(ctx, db, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Label != "BOTTLE" || rows[1].Status != "CONTAMINATION_PREVENTED" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

// eventRow is a stored disposal event as read back from the table
type eventRow struct {
	ID         string
	Label      string
	ClassID    int
	Confidence float64
	Bin        string
	Status     string
}

// listDisposalEvents returns the most recent events in acceptance order
func listDisposalEvents(ctx context.Context, d *Database, limit int) ([]eventRow, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, label, class_id, confidence, bin, status FROM (
			SELECT id, ts, label, class_id, confidence, bin, status
			FROM disposal_events
			ORDER BY ts DESC
			LIMIT $1
		) recent
		ORDER BY ts
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []eventRow
	for rows.Next() {
		var e eventRow
		if err := rows.Scan(&e.ID, &e.Label, &e.ClassID, &e.Confidence, &e.Bin, &e.Status); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
