package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

const retries = 5

// Detector runs object detection on one encoded image
type Detector interface {
	SendFrame(ctx context.Context, imageData []byte) ([]models.Detection, error)
}

// DetectorSource downloads image frames from object storage and sends each
// to the HTTP detector
type DetectorSource struct {
	store    ObjectStore
	detector Detector
	url      string
	interval time.Duration
	log      zerolog.Logger
}

func NewDetectorSource(store ObjectStore, detector Detector, url string, interval time.Duration, log zerolog.Logger) *DetectorSource {
	return &DetectorSource{
		store:    store,
		detector: detector,
		url:      url,
		interval: interval,
		log:      log.With().Str("component", "detector_source").Str("url", url).Logger(),
	}
}

func (s *DetectorSource) Run(ctx context.Context, out chan<- models.Frame) error {
	defer close(out)

	s.log.Info().Msg("downloading frames")
	images, err := s.store.DownloadFilesFromURL(ctx, s.url)
	if err != nil {
		return fmt.Errorf("download frames: %w", err)
	}

	pace := newPacer(s.interval)
	defer pace.stop()

	for idx, img := range images {
		if err := pace.wait(ctx); err != nil {
			return nil
		}

		dets, ok := s.detectWithRetries(ctx, img.Data, idx)
		if !ok {
			continue
		}

		select {
		case out <- models.Frame{Seq: int64(idx), Timestamp: time.Now(), Detections: dets}:
		case <-ctx.Done():
			return nil
		}
	}

	s.log.Info().Int("frames", len(images)).Msg("finished sending frames")
	return nil
}

func (s *DetectorSource) detectWithRetries(ctx context.Context, image []byte, idx int) ([]models.Detection, bool) {
	for attempt := 0; attempt < retries; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}
		dets, err := s.detector.SendFrame(ctx, image)
		if err != nil {
			s.log.Warn().Err(err).Int("frame", idx).Int("attempt", attempt+1).Msg("detection error")
			continue
		}
		return dets, true
	}

	s.log.Error().Int("frame", idx).Msg("failed to process frame")
	return nil, false
}
