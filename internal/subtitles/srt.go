// Package subtitles reads and writes SRT subtitle files and merges
// per-line translations back into them.
package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Cue is one subtitle entry with start/end times in seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// WriteSRT serializes cues to path in SRT format (1-based indices,
// HH:MM:SS,mmm timestamps, blank-line separated blocks).
func WriteSRT(path string, cues []Cue) error {
	var sb strings.Builder
	for i, cue := range cues {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(formatTimestamp(cue.Start))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(cue.End))
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimSpace(cue.Text))
		sb.WriteString("\n\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// ParseSRT reads an SRT file back into cues. Malformed blocks are skipped
// rather than failing the whole file.
func ParseSRT(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")

	var cues []Cue
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		// First line is the index; the timing line may follow it directly for
		// files that omit indices.
		timingIdx := 0
		if !strings.Contains(lines[0], "-->") {
			timingIdx = 1
		}
		if timingIdx >= len(lines) || !strings.Contains(lines[timingIdx], "-->") {
			continue
		}
		parts := strings.SplitN(lines[timingIdx], "-->", 2)
		start, errStart := parseTimestamp(strings.TrimSpace(parts[0]))
		end, errEnd := parseTimestamp(strings.TrimSpace(parts[1]))
		if errStart != nil || errEnd != nil {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[timingIdx+1:], "\n"))
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues, nil
}

// MergeTranslations replaces cue text with translations where available.
// The translations map is keyed by cue index; missing or empty entries keep
// the original text, so the output always has exactly as many cues as the
// input.
func MergeTranslations(cues []Cue, translations map[int]string) []Cue {
	merged := make([]Cue, len(cues))
	copy(merged, cues)
	for i := range merged {
		if text, ok := translations[i]; ok && strings.TrimSpace(text) != "" {
			merged[i].Text = text
		}
	}
	return merged
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3_600_000
	m := millis % 3_600_000 / 60_000
	s := millis % 60_000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func parseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// SRT uses a comma before milliseconds; tolerate a period.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
