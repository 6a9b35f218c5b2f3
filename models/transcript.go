package models

import "time"

// Segment is a time-bounded span of recognized speech, in seconds from the start
// of the audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the ordered output of one model invocation.
type Transcript struct {
	Segments  []Segment `json:"segments"`
	Language  string    `json:"language,omitempty"`
	ModelName string    `json:"model_name,omitempty"`
}

type TranscriptionRequest struct {
	Filename  string
	ModelName string
	Language  string // empty means detect automatically
	Verbose   bool
	Force     bool
}

type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunWritten    RunStatus = "written"
	RunArchived   RunStatus = "archived"
	RunSkipped    RunStatus = "skipped"
	RunFailed     RunStatus = "failed"
)

// Run is one ledger row.
type Run struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ModelName   string    `json:"model_name"`
	Language    string    `json:"language,omitempty"`
	Device      string    `json:"device"`
	Status      RunStatus `json:"status"`
	OutputPath  string    `json:"output_path,omitempty"`
	ArchivePath string    `json:"archive_path,omitempty"`
	Segments    int       `json:"segments"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status check methods
func (r *Run) IsWritten() bool  { return r.Status == RunWritten }
func (r *Run) IsArchived() bool { return r.Status == RunArchived }
func (r *Run) IsFailed() bool   { return r.Status == RunFailed }
