package jobstore

import "path/filepath"

// Well-known file names inside a job directory. Every artifact a job produces
// lives under its private directory and is deletable as a unit.
const (
	StatusFileName    = "status.json"
	WorkerLogFileName = "worker.log"
	VideoFileName     = "video.mp4"
	AudioFileName     = "audio.wav"
	RawSubtitleName   = "raw.srt"
	FinalSubtitleName = "subs.srt"
	OutputFileName    = "output.mp4"
)

// Paths resolves the layout of a single job directory.
type Paths struct {
	Dir string
}

// JobPaths returns the path layout for a job id under the data directory.
func JobPaths(dataDir, id string) Paths {
	return Paths{Dir: filepath.Join(dataDir, id)}
}

func (p Paths) Status() string        { return filepath.Join(p.Dir, StatusFileName) }
func (p Paths) WorkerLog() string     { return filepath.Join(p.Dir, WorkerLogFileName) }
func (p Paths) Video() string         { return filepath.Join(p.Dir, VideoFileName) }
func (p Paths) Audio() string         { return filepath.Join(p.Dir, AudioFileName) }
func (p Paths) RawSubtitle() string   { return filepath.Join(p.Dir, RawSubtitleName) }
func (p Paths) FinalSubtitle() string { return filepath.Join(p.Dir, FinalSubtitleName) }
func (p Paths) Output() string        { return filepath.Join(p.Dir, OutputFileName) }
