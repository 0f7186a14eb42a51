package classifier

import (
	"math"

	"github.com/samber/lo"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/labels"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// Classify returns CORRECT iff the detection's class is allowed by p. Any
// class id is valid input.
func Classify(d models.Detection, p bins.Profile) models.Verdict {
	if p.Allows(d.ClassID) {
		return models.VerdictCorrect
	}
	return models.VerdictContamination
}

// Classifier decides which detections are worth considering at all
type Classifier struct {
	tracked       map[int]struct{}
	minConfidence float64
}

func New(registry *bins.Registry, minConfidence float64) *Classifier {
	return &Classifier{
		tracked: lo.SliceToMap(registry.Tracked(), func(id int) (int, struct{}) {
			return id, struct{}{}
		}),
		minConfidence: minConfidence,
	}
}

// IsTracked reports whether classID belongs to any configured profile
func (c *Classifier) IsTracked(classID int) bool {
	_, ok := c.tracked[classID]
	return ok
}

// Valid reports whether the detection's confidence is a usable score
func Valid(d models.Detection) bool {
	return !math.IsNaN(d.Confidence) && d.Confidence >= 0 && d.Confidence <= 1
}

// Filter keeps tracked, well-formed detections at or above the confidence
// threshold, in their original order, with normalized labels. The second
// result counts malformed detections that were dropped.
func (c *Classifier) Filter(dets []models.Detection) ([]models.Detection, int) {
	out := make([]models.Detection, 0, len(dets))
	malformed := 0
	for _, d := range dets {
		if !Valid(d) {
			malformed++
			continue
		}
		if !c.IsTracked(d.ClassID) || d.Confidence < c.minConfidence {
			continue
		}
		d.Label = labels.Normalize(d.ClassID, d.Label)
		out = append(out, d)
	}
	return out, malformed
}
