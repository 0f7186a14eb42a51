// Package telemetry persists accepted disposal events.
//
// The CSV log is the system of record read by the offline dashboard.
// Postgres and object storage hold copies of it.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

var ErrSinkUnavailable = errors.New("telemetry sink unavailable")

// Recorder appends one record per accepted event. Implementations must
// preserve call order.
type Recorder interface {
	Record(ctx context.Context, ev models.DisposalEvent) error
}

// EventStore is the part of the database the mirror needs
type EventStore interface {
	InsertDisposalEvent(ctx context.Context, ev models.DisposalEvent) error
}

// Mirror copies events into a database table
type Mirror struct {
	store EventStore
}

func NewMirror(store EventStore) *Mirror {
	return &Mirror{store: store}
}

func (m *Mirror) Record(ctx context.Context, ev models.DisposalEvent) error {
	if err := m.store.InsertDisposalEvent(ctx, ev); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}
	return nil
}

// Chain records into every recorder in order. Every recorder is attempted
// even when an earlier one fails.
type Chain []Recorder

func (c Chain) Record(ctx context.Context, ev models.DisposalEvent) error {
	var errs []error
	for _, r := range c {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if !errors.Is(err, ErrSinkUnavailable) {
		err = fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}
	return err
}
