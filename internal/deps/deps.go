// Package deps verifies the external binaries the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subburn/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the binary list from configuration.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Command: cfg.FFmpeg.Binary, Description: "audio extraction and subtitle burn-in"},
		{Name: "downloader", Command: cfg.Download.Binary, Description: "video download from URL submissions"},
		{Name: "transcriber", Command: cfg.Whisper.Binary, Description: "speech-to-text transcription"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional binaries.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
