package models

import (
	"time"

	"github.com/google/uuid"
)

type CommandAction string

const (
	CommandSwitchBin CommandAction = "switch_bin"
	CommandStop      CommandAction = "stop"
)

// Detection is one object reported by the detector for a single frame
type Detection struct {
	ClassID    int        `json:"class_id"`
	Label      string     `json:"class"`
	Confidence float64    `json:"score"`
	Box        [4]float64 `json:"box"` // [x1, y1, x2, y2]
}

// Frame is the batch of detections the detector produced for one video frame
type Frame struct {
	Seq        int64       `json:"seq"`
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`

	// Ack is called once the frame has been fully processed. Sources with
	// at-least-once delivery commit their offset here.
	Ack func() `json:"-"`
}

// Verdict is the classification of a detection under the active bin profile
type Verdict string

const (
	VerdictCorrect       Verdict = "CORRECT"
	VerdictContamination Verdict = "CONTAMINATION"
)

// Status returns the value written to the telemetry log
func (v Verdict) Status() string {
	if v == VerdictCorrect {
		return "CORRECT"
	}
	return "CONTAMINATION_PREVENTED"
}

// DisposalEvent is one debounced, accepted disposal decision
type DisposalEvent struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Label      string    `json:"label"`
	ClassID    int       `json:"class_id"`
	Confidence float64   `json:"confidence"`
	BinName    string    `json:"bin"`
	Verdict    Verdict   `json:"verdict"`
}

type Command struct {
	Action CommandAction `json:"action"`
	Bin    string        `json:"bin,omitempty"`
}

type Heartbeat struct {
	StationID      string    `json:"StationID"`
	Bin            string    `json:"Bin"`
	Frames         int64     `json:"Frames"`
	Correct        int64     `json:"Correct"`
	Contaminations int64     `json:"Contaminations"`
	TimeStamp      time.Time `json:"TimeStamp"`
}

// Stats are the running counters of the processing loop
type Stats struct {
	Frames         int64 `json:"frames"`
	Correct        int64 `json:"correct"`
	Contaminations int64 `json:"contaminations"`
	Rejected       int64 `json:"rejected"`
	SinkErrors     int64 `json:"sink_errors"`
}
