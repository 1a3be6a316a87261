package jobstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job as it moves through the pipeline.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusStarted      Status = "started"
	StatusDownloading  Status = "downloading"
	StatusProcessing   Status = "processing"
	StatusTranscribing Status = "transcribing"
	StatusTranslating  Status = "translating"
	StatusBurning      Status = "burning"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"

	// StatusError is a read-side status reported to pollers when the stored
	// record cannot be parsed. It is never persisted.
	StatusError Status = "error"
)

var statusRanks = map[Status]int{
	StatusQueued:       0,
	StatusStarted:      1,
	StatusDownloading:  2,
	StatusProcessing:   3,
	StatusTranscribing: 4,
	StatusTranslating:  5,
	StatusBurning:      6,
	StatusDone:         7,
	StatusFailed:       7,
	StatusCancelled:    7,
}

// Record is the per-job status document persisted as status.json. Exactly one
// writer (the worker owning the job, or the daemon after the worker is dead)
// ever mutates a given record; readers poll it without locking.
type Record struct {
	Status    Status    `json:"status"`
	Log       string    `json:"log"`
	Output    string    `json:"output,omitempty"`
	PID       int       `json:"pid,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatusQueued, StatusStarted, StatusDownloading, StatusProcessing,
		StatusTranscribing, StatusTranslating, StatusBurning,
		StatusDone, StatusFailed, StatusCancelled:
		return normalized, true
	}
	return "", false
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Rank returns the position of a status along the pipeline order. Terminal
// states share the highest rank so monotonicity checks treat them as absorbing.
func (s Status) Rank() int {
	rank, ok := statusRanks[s]
	if !ok {
		return -1
	}
	return rank
}
