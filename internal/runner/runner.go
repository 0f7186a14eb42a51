package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/classifier"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/debounce"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/telemetry"
)

// Notifier announces an accepted event without blocking
type Notifier interface {
	Notify(ev models.DisposalEvent)
}

type HeartbeatSender interface {
	SendHeartbeat(msg models.Heartbeat) error
}

type Option func(*Runner)

// WithClock replaces time.Now, mainly for simulated time in tests
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithHeartbeats(sender HeartbeatSender, stationID string, interval time.Duration) Option {
	return func(r *Runner) {
		r.heartbeats = sender
		r.stationID = stationID
		r.heartbeatInterval = interval
	}
}

// Runner is the processing loop. Run must be called from a single
// goroutine; it is the only writer of the debounce gate and of the active
// bin profile.
type Runner struct {
	registry   *bins.Registry
	classifier *classifier.Classifier
	debouncer  *debounce.Debouncer
	recorder   telemetry.Recorder
	notifier   Notifier
	log        zerolog.Logger
	now        func() time.Time

	heartbeats        HeartbeatSender
	stationID         string
	heartbeatInterval time.Duration
	heartbeatBusy     atomic.Bool

	frames         atomic.Int64
	correct        atomic.Int64
	contaminations atomic.Int64
	rejected       atomic.Int64
	sinkErrors     atomic.Int64
}

func New(
	registry *bins.Registry,
	cls *classifier.Classifier,
	debouncer *debounce.Debouncer,
	recorder telemetry.Recorder,
	notifier Notifier,
	log zerolog.Logger,
	opts ...Option,
) *Runner {
	r := &Runner{
		registry:   registry,
		classifier: cls,
		debouncer:  debouncer,
		recorder:   recorder,
		notifier:   notifier,
		log:        log.With().Str("component", "runner").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes frames until a stop command arrives, frames is closed, or
// ctx is cancelled. Commands are applied between frames.
func (r *Runner) Run(ctx context.Context, frames <-chan models.Frame, commands <-chan models.Command) error {
	r.log.Info().
		Str("bin", r.registry.Current().Name).
		Dur("cooldown", r.debouncer.Gate().Cooldown()).
		Msg("listening for frames")

	var heartbeat <-chan time.Time
	if r.heartbeats != nil && r.heartbeatInterval > 0 {
		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("shutting down")
			return nil

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if r.apply(cmd) {
				r.log.Info().Msg("stop command received")
				return nil
			}

		case frame, ok := <-frames:
			if !ok {
				r.log.Info().Msg("frame source closed")
				return nil
			}
			if r.drain(&commands) {
				r.log.Info().Msg("stop command received")
				return nil
			}
			r.processFrame(ctx, frame)

		case <-heartbeat:
			r.sendHeartbeat()
		}
	}
}

// Stats is safe to call from any goroutine
func (r *Runner) Stats() models.Stats {
	return models.Stats{
		Frames:         r.frames.Load(),
		Correct:        r.correct.Load(),
		Contaminations: r.contaminations.Load(),
		Rejected:       r.rejected.Load(),
		SinkErrors:     r.sinkErrors.Load(),
	}
}

// drain applies every pending command and reports whether one was stop
func (r *Runner) drain(commands *<-chan models.Command) bool {
	for {
		select {
		case cmd, ok := <-*commands:
			if !ok {
				*commands = nil
				return false
			}
			if r.apply(cmd) {
				return true
			}
		default:
			return false
		}
	}
}

func (r *Runner) apply(cmd models.Command) (stop bool) {
	switch cmd.Action {
	case models.CommandStop:
		return true
	case models.CommandSwitchBin:
		profile, err := r.registry.Resolve(cmd.Bin)
		if err != nil {
			r.log.Warn().Err(err).Str("bin", cmd.Bin).Msg("ignoring bin switch")
			return false
		}
		if err := r.registry.Activate(profile.Name); err != nil {
			r.log.Warn().Err(err).Msg("ignoring bin switch")
			return false
		}
		r.log.Info().Str("bin", profile.Name).Msg("bin mode switched")
	default:
		r.log.Warn().Str("action", string(cmd.Action)).Msg("unknown command")
	}
	return false
}

func (r *Runner) processFrame(ctx context.Context, frame models.Frame) {
	now := r.now()
	r.frames.Add(1)

	dets, malformed := r.classifier.Filter(frame.Detections)
	if malformed > 0 {
		r.rejected.Add(int64(malformed))
		r.log.Warn().Int64("seq", frame.Seq).Int("count", malformed).Msg("dropped malformed detections")
	}

	if r.log.GetLevel() <= zerolog.TraceLevel {
		profile := r.registry.Current()
		for _, d := range dets {
			r.log.Trace().
				Int64("seq", frame.Seq).
				Str("label", d.Label).
				Float64("confidence", d.Confidence).
				Str("verdict", string(classifier.Classify(d, profile))).
				Msg("detection")
		}
	}

	if ev, ok := r.debouncer.Process(now, dets); ok {
		r.accept(ctx, ev)
	}

	if frame.Ack != nil {
		frame.Ack()
	}
}

func (r *Runner) accept(ctx context.Context, ev models.DisposalEvent) {
	if ev.Verdict == models.VerdictCorrect {
		r.correct.Add(1)
	} else {
		r.contaminations.Add(1)
	}

	r.log.Info().
		Str("event_id", ev.ID.String()).
		Str("label", ev.Label).
		Float64("confidence", ev.Confidence).
		Str("bin", ev.BinName).
		Str("verdict", string(ev.Verdict)).
		Msg("disposal event")

	// The gate has already tripped; a sink failure does not undo the event.
	if err := r.recorder.Record(ctx, ev); err != nil {
		r.sinkErrors.Add(1)
		r.log.Error().
			Err(err).
			Str("sink", "telemetry").
			Str("event_id", ev.ID.String()).
			Msg("failed to record disposal event")
	}

	r.notifier.Notify(ev)
}

// sendHeartbeat publishes in the background and skips a beat while the
// previous one is still in flight.
func (r *Runner) sendHeartbeat() {
	if !r.heartbeatBusy.CompareAndSwap(false, true) {
		return
	}

	stats := r.Stats()
	msg := models.Heartbeat{
		StationID:      r.stationID,
		Bin:            r.registry.Current().Name,
		Frames:         stats.Frames,
		Correct:        stats.Correct,
		Contaminations: stats.Contaminations,
		TimeStamp:      r.now().UTC(),
	}

	go func() {
		defer r.heartbeatBusy.Store(false)
		if err := r.heartbeats.SendHeartbeat(msg); err != nil {
			r.log.Warn().Err(err).Msg("error sending heartbeat")
		}
	}()
}
