package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/s3"
)

// ObjectStore lists and downloads every object under a bucket folder URL
type ObjectStore interface {
	DownloadFilesFromURL(ctx context.Context, fileURL string) ([]s3.Object, error)
}

// Replay plays back stored per-frame predictions (predictions/<scenario>/<n>.json)
type Replay struct {
	store    ObjectStore
	url      string
	interval time.Duration
	log      zerolog.Logger
}

func NewReplay(store ObjectStore, url string, interval time.Duration, log zerolog.Logger) *Replay {
	return &Replay{
		store:    store,
		url:      url,
		interval: interval,
		log:      log.With().Str("component", "replay").Str("url", url).Logger(),
	}
}

// Run sends frames in index order and closes out when done
func (r *Replay) Run(ctx context.Context, out chan<- models.Frame) error {
	defer close(out)

	objects, err := r.store.DownloadFilesFromURL(ctx, r.url)
	if err != nil {
		return fmt.Errorf("download predictions: %w", err)
	}
	r.log.Info().Int("frames", len(objects)).Msg("replaying stored predictions")

	pace := newPacer(r.interval)
	defer pace.stop()

	for idx, obj := range objects {
		frame, err := DecodeFrame(obj.Data)
		if err != nil {
			r.log.Warn().Err(err).Str("key", obj.Key).Msg("skipping unreadable prediction")
			continue
		}
		frame.Seq = int64(idx)

		if err := pace.wait(ctx); err != nil {
			return nil
		}
		select {
		case out <- frame:
		case <-ctx.Done():
			return nil
		}
	}

	r.log.Info().Int("frames", len(objects)).Msg("replay finished")
	return nil
}

// pacer spaces out frames; a zero interval sends as fast as the loop reads
type pacer struct {
	ticker *time.Ticker
}

func newPacer(interval time.Duration) *pacer {
	if interval <= 0 {
		return &pacer{}
	}
	return &pacer{ticker: time.NewTicker(interval)}
}

func (p *pacer) wait(ctx context.Context) error {
	if p.ticker == nil {
		return ctx.Err()
	}
	select {
	case <-p.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pacer) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}
