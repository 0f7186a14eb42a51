package notify

import (
	"fmt"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// Message is what a sink delivers for one accepted event
type Message struct {
	EventID   string
	Text      string
	Verdict   models.Verdict
	Bin       string
	Timestamp time.Time
}

// Text renders the spoken announcement for ev
func Text(ev models.DisposalEvent) string {
	if ev.Verdict == models.VerdictCorrect {
		return fmt.Sprintf("%s accepted.", ev.Label)
	}
	return fmt.Sprintf("Warning. %s does not belong in %s.", ev.Label, ev.BinName)
}

func NewMessage(ev models.DisposalEvent) Message {
	return Message{
		EventID:   ev.ID.String(),
		Text:      Text(ev),
		Verdict:   ev.Verdict,
		Bin:       ev.BinName,
		Timestamp: ev.Timestamp,
	}
}
