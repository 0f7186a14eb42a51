package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

type fakeRecorder struct {
	err    error
	events []models.DisposalEvent
}

func (f *fakeRecorder) Record(_ context.Context, ev models.DisposalEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type fakeStore struct {
	err error
	ids []string
}

func (f *fakeStore) InsertDisposalEvent(_ context.Context, ev models.DisposalEvent) error {
	f.ids = append(f.ids, ev.ID.String())
	return f.err
}

type fakeUploader struct {
	bucket, name, contentType string
	body                      []byte
}

func (f *fakeUploader) UploadFile(_ context.Context, bucket, name string, r io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.bucket, f.name, f.contentType, f.body = bucket, name, contentType, buf.Bytes()
	return nil
}

func TestChainAttemptsEveryRecorder(t *testing.T) {
	failing := &fakeRecorder{err: errors.New("disk full")}
	healthy := &fakeRecorder{}
	chain := Chain{failing, healthy}

	ev := event(0, "BOTTLE", 0.8, models.VerdictCorrect)
	err := chain.Record(context.Background(), ev)

	if !errors.Is(err, ErrSinkUnavailable) {
		t.Fatalf("expected ErrSinkUnavailable, got %v", err)
	}
	if len(healthy.events) != 1 || healthy.events[0].ID != ev.ID {
		t.Error("recorder after a failing one must still receive the event")
	}

	if err := (Chain{healthy}).Record(context.Background(), ev); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestMirror(t *testing.T) {
	store := &fakeStore{}
	ev := event(0, "BOTTLE", 0.8, models.VerdictCorrect)

	if err := NewMirror(store).Record(context.Background(), ev); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(store.ids) != 1 || store.ids[0] != ev.ID.String() {
		t.Errorf("unexpected inserts: %v", store.ids)
	}

	store.err = errors.New("connection refused")
	if err := NewMirror(store).Record(context.Background(), ev); !errors.Is(err, ErrSinkUnavailable) {
		t.Errorf("expected ErrSinkUnavailable, got %v", err)
	}
}

func TestArchiveUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waste_telemetry.csv")
	content := strings.Join(Header, ",") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}

	up := &fakeUploader{}
	at := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	name, err := NewArchive(up, "telemetry", "bin-01").Upload(context.Background(), path, at)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if name != "bin-01/20260301-183000-waste_telemetry.csv" {
		t.Errorf("unexpected object name %s", name)
	}
	if up.bucket != "telemetry" || up.contentType != "text/csv" || string(up.body) != content {
		t.Errorf("unexpected upload: bucket=%s type=%s body=%q", up.bucket, up.contentType, up.body)
	}
}
