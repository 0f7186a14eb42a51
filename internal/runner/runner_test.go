package runner

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/bins"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/classifier"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/debounce"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/telemetry"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.DisposalEvent
}

func (n *fakeNotifier) Notify(ev models.DisposalEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *fakeNotifier) all() []models.DisposalEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.DisposalEvent(nil), n.events...)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, models.DisposalEvent) error {
	return telemetry.ErrSinkUnavailable
}

type fakeHeartbeats struct {
	beats chan models.Heartbeat
}

func (f *fakeHeartbeats) SendHeartbeat(msg models.Heartbeat) error {
	select {
	case f.beats <- msg:
	default:
	}
	return nil
}

type harness struct {
	runner   *Runner
	registry *bins.Registry
	notifier *fakeNotifier
	frames   chan models.Frame
	commands chan models.Command
	clock    atomic.Int64
	done     chan error
	cancel   context.CancelFunc
}

func newHarness(t *testing.T, recorder telemetry.Recorder, opts ...Option) *harness {
	t.Helper()

	registry, err := bins.NewRegistry([]bins.Profile{
		{Name: bins.Recycling, Key: "1", Classes: []int{39, 40, 41}},
		{Name: bins.WetWaste, Key: "2", Classes: []int{46, 47, 50}},
	}, bins.Recycling)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	h := &harness{
		registry: registry,
		notifier: &fakeNotifier{},
		frames:   make(chan models.Frame),
		commands: make(chan models.Command, 4),
		done:     make(chan error, 1),
	}
	h.clock.Store(epoch.UnixNano())

	opts = append([]Option{WithClock(func() time.Time { return time.Unix(0, h.clock.Load()).UTC() })}, opts...)
	h.runner = New(
		registry,
		classifier.New(registry, 0.6),
		debounce.New(debounce.NewGate(4*time.Second), registry),
		recorder,
		h.notifier,
		zerolog.Nop(),
		opts...,
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.runner.Run(ctx, h.frames, h.commands) }()
	t.Cleanup(cancel)
	return h
}

// send delivers one frame at t seconds and waits until it has been processed
func (h *harness) send(t *testing.T, seconds float64, dets ...models.Detection) {
	t.Helper()
	h.clock.Store(epoch.Add(time.Duration(seconds * float64(time.Second))).UnixNano())

	acked := make(chan struct{})
	select {
	case h.frames <- models.Frame{Detections: dets, Ack: func() { close(acked) }}:
	case <-time.After(time.Second):
		t.Fatal("runner did not accept frame")
	}
	select {
	case <-acked:
	case <-time.After(time.Second):
		t.Fatal("runner did not finish frame")
	}
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
		return nil
	}
}

func det(classID int, confidence float64) models.Detection {
	return models.Detection{ClassID: classID, Confidence: confidence}
}

func TestRunnerEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waste_telemetry.csv")
	h := newHarness(t, telemetry.NewCSVLog(path))

	h.send(t, 0, det(40, 0.8))
	h.send(t, 2, det(40, 0.99), det(50, 0.95))
	h.send(t, 5, det(50, 0.9))

	h.commands <- models.Command{Action: models.CommandStop}
	if err := h.wait(t); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	events := h.notifier.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 notified events, got %d", len(events))
	}
	if events[0].Verdict != models.VerdictCorrect || events[0].Label != "WINE GLASS" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Verdict != models.VerdictContamination || events[1].Label != "BROCCOLI" {
		t.Errorf("unexpected second event %+v", events[1])
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse log: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 records, got %v", rows)
	}
	if rows[1][4] != "CORRECT" || rows[2][4] != "CONTAMINATION_PREVENTED" {
		t.Errorf("unexpected statuses %q, %q", rows[1][4], rows[2][4])
	}
	if rows[2][0] != "2026-03-01 12:00:05" || rows[2][2] != "0.90" {
		t.Errorf("unexpected record %v", rows[2])
	}

	st := h.runner.Stats()
	if st.Frames != 3 || st.Correct != 1 || st.Contaminations != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestRunnerProfileSwitch(t *testing.T) {
	h := newHarness(t, telemetry.Chain{})

	h.send(t, 0, det(50, 0.9))

	h.commands <- models.Command{Action: models.CommandSwitchBin, Bin: "2"}
	h.send(t, 4, det(50, 0.9))

	h.commands <- models.Command{Action: models.CommandSwitchBin, Bin: "COMPOST"}
	h.send(t, 8, det(50, 0.9))

	events := h.notifier.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].BinName != bins.Recycling || events[0].Verdict != models.VerdictContamination {
		t.Errorf("event before switch changed: %+v", events[0])
	}
	if events[1].BinName != bins.WetWaste || events[1].Verdict != models.VerdictCorrect {
		t.Errorf("event after switch must use WET_WASTE: %+v", events[1])
	}
	if events[2].BinName != bins.WetWaste {
		t.Errorf("unknown profile must keep WET_WASTE active: %+v", events[2])
	}
}

func TestRunnerFiltersUntrackedAndMalformed(t *testing.T) {
	h := newHarness(t, telemetry.Chain{})

	// person, low-confidence cup and a malformed score: nothing to accept
	h.send(t, 0, det(0, 0.99), det(41, 0.3), det(40, 7))
	if got := len(h.notifier.all()); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}

	// gate stayed armed
	h.send(t, 0.5, det(41, 0.7))
	if got := len(h.notifier.all()); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}
	if st := h.runner.Stats(); st.Rejected != 1 {
		t.Errorf("expected 1 rejected detection, got %+v", st)
	}
}

func TestRunnerSinkFailureKeepsLooping(t *testing.T) {
	h := newHarness(t, failingRecorder{})

	h.send(t, 0, det(40, 0.8))
	h.send(t, 1, det(40, 0.8))
	h.send(t, 4, det(40, 0.8))

	if got := len(h.notifier.all()); got != 2 {
		t.Fatalf("expected 2 events despite sink failures, got %d", got)
	}
	if st := h.runner.Stats(); st.SinkErrors != 2 {
		t.Errorf("expected 2 sink errors, got %+v", st)
	}
}

func TestRunnerStopsOnClosedSourceAndCancel(t *testing.T) {
	h := newHarness(t, telemetry.Chain{})
	close(h.frames)
	if err := h.wait(t); err != nil {
		t.Errorf("expected clean stop, got %v", err)
	}

	h2 := newHarness(t, telemetry.Chain{})
	h2.cancel()
	if err := h2.wait(t); err != nil {
		t.Errorf("expected clean stop on cancel, got %v", err)
	}
}

func TestRunnerHeartbeats(t *testing.T) {
	hb := &fakeHeartbeats{beats: make(chan models.Heartbeat, 1)}
	h := newHarness(t, telemetry.Chain{}, WithHeartbeats(hb, "bin-01", 10*time.Millisecond))

	h.send(t, 0, det(40, 0.8))

	select {
	case beat := <-hb.beats:
		if beat.StationID != "bin-01" || beat.Bin != bins.Recycling {
			t.Errorf("unexpected heartbeat %+v", beat)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat sent")
	}
}

func TestRunnerUnknownCommandIgnored(t *testing.T) {
	h := newHarness(t, telemetry.Chain{})
	h.commands <- models.Command{Action: "reboot"}
	h.send(t, 0, det(40, 0.8))

	if got := len(h.notifier.all()); got != 1 {
		t.Fatalf("expected loop to keep processing, got %d events", got)
	}
}
