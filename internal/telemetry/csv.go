package telemetry

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

const TimestampLayout = "2006-01-02 15:04:05"

var Header = []string{"Timestamp", "Object_Detected", "Confidence_Score", "Target_Bin", "Status"}

// CSVLog is an append-only CSV file. The file is reopened for every record,
// so a path that is temporarily unwritable recovers on the next event.
type CSVLog struct {
	path string
	mu   sync.Mutex
}

func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

func (l *CSVLog) Path() string {
	return l.path
}

// Init creates the file with its header if it does not exist yet
func (l *CSVLog) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(nil)
}

func (l *CSVLog) Record(_ context.Context, ev models.DisposalEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(Row(ev))
}

// Row renders ev in log column order
func Row(ev models.DisposalEvent) []string {
	return []string{
		ev.Timestamp.Format(TimestampLayout),
		ev.Label,
		strconv.FormatFloat(ev.Confidence, 'f', 2, 64),
		ev.BinName,
		ev.Verdict.Status(),
	}
}

func (l *CSVLog) append(row []string) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrSinkUnavailable, l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrSinkUnavailable, l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("%w: write header: %w", ErrSinkUnavailable, err)
		}
	}
	if row != nil {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: write record: %w", ErrSinkUnavailable, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrSinkUnavailable, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrSinkUnavailable, l.path, err)
	}
	return nil
}
