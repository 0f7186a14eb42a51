package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Uploader stores an object in a bucket
type Uploader interface {
	UploadFile(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error
}

// Archive copies the CSV log to object storage so the dashboard job can
// collect logs from every station.
type Archive struct {
	uploader  Uploader
	bucket    string
	stationID string
}

func NewArchive(uploader Uploader, bucket, stationID string) *Archive {
	return &Archive{uploader: uploader, bucket: bucket, stationID: stationID}
}

// ObjectName is <station>/<yyyymmdd-hhmmss>-<file name>
func (a *Archive) ObjectName(logPath string, at time.Time) string {
	return path.Join(a.stationID, at.UTC().Format("20060102-150405")+"-"+filepath.Base(logPath))
}

// Upload sends the current contents of logPath
func (a *Archive) Upload(ctx context.Context, logPath string, at time.Time) (string, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return "", fmt.Errorf("open telemetry log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat telemetry log: %w", err)
	}

	name := a.ObjectName(logPath, at)
	if err := a.uploader.UploadFile(ctx, a.bucket, name, f, info.Size(), "text/csv"); err != nil {
		return "", err
	}
	return name, nil
}
