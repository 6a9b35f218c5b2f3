package transcription

import (
	"fmt"
	"time"

	"github.com/nijaru/vid-text/models"
)

type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome reports how a request ended. Skipped and Failed carry the error.
type Outcome struct {
	Status   Status
	Request  models.TranscriptionRequest
	Paths    PathSet
	RunID    string
	Segments int
	Resumed  bool
	Elapsed  time.Duration
	Err      error
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Message is the one-line status shown to the user.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusSuccess:
		if o.Resumed {
			return fmt.Sprintf("Archived %s (transcript %s already written)", o.Request.Filename, o.Paths.Output)
		}
		return fmt.Sprintf("Transcribed %s: %d segments written to %s", o.Request.Filename, o.Segments, o.Paths.Output)
	case StatusSkipped:
		return fmt.Sprintf("Skipped %s: %v", o.Request.Filename, o.Err)
	default:
		return fmt.Sprintf("Failed %s: %v", o.Request.Filename, o.Err)
	}
}
