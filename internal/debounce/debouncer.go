package debounce

import (
	"time"

	"github.com/google/uuid"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/classifier"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// Debouncer turns per-frame detection batches into at most one
// DisposalEvent per cooldown window. It is owned by a single goroutine and
// is not safe for concurrent use.
type Debouncer struct {
	gate     *Gate
	registry *bins.Registry
}

func New(gate *Gate, registry *bins.Registry) *Debouncer {
	return &Debouncer{gate: gate, registry: registry}
}

func (d *Debouncer) Gate() *Gate {
	return d.gate
}

// Process evaluates one batch at now. Detections must already be filtered
// to tracked classes.
func (d *Debouncer) Process(now time.Time, dets []models.Detection) (models.DisposalEvent, bool) {
	if !d.gate.Ready(now) {
		return models.DisposalEvent{}, false
	}

	primary, ok := SelectPrimary(dets)
	if !ok {
		return models.DisposalEvent{}, false
	}

	profile := d.registry.Current()
	ev := models.DisposalEvent{
		ID:         uuid.New(),
		Timestamp:  now,
		Label:      primary.Label,
		ClassID:    primary.ClassID,
		Confidence: primary.Confidence,
		BinName:    profile.Name,
		Verdict:    classifier.Classify(primary, profile),
	}
	d.gate.Trip(now)

	return ev, true
}

// SelectPrimary returns the highest-confidence detection. Ties go to the
// earliest one in the batch; upstream ordering is not assumed.
func SelectPrimary(dets []models.Detection) (models.Detection, bool) {
	if len(dets) == 0 {
		return models.Detection{}, false
	}
	best := 0
	for i := 1; i < len(dets); i++ {
		if dets[i].Confidence > dets[best].Confidence {
			best = i
		}
	}
	return dets[best], true
}
