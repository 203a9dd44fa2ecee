// Package replay runs a recorded transcript through the classifier and the
// session reducer offline, producing the same summary a live session would.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Line is one transcript fragment from a recording.
type Line struct {
	Text      string
	Timestamp time.Time
}

// rawLine accepts either a unix-millisecond or an RFC3339 timestamp.
type rawLine struct {
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestamp_ms"`
	Timestamp   string `json:"timestamp"`
}

// ParseFile parses a JSONL transcript file.
func ParseFile(path string) ([]Line, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads JSONL transcript lines. Malformed and blank lines are skipped
// and counted. Lines without a timestamp are placed one second after the
// previous line.
func Parse(r io.Reader) ([]Line, int, error) {
	var (
		lines   []Line
		skipped int
		last    time.Time
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var l rawLine
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(l.Text) == "" {
			skipped++
			continue
		}

		ts := l.time()
		switch {
		case !ts.IsZero():
		case last.IsZero():
			ts = time.Unix(0, 0).UTC()
		default:
			ts = last.Add(time.Second)
		}
		last = ts
		lines = append(lines, Line{Text: l.Text, Timestamp: ts})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan: %w", err)
	}
	return lines, skipped, nil
}

func (l rawLine) time() time.Time {
	if l.TimestampMs > 0 {
		return time.UnixMilli(l.TimestampMs).UTC()
	}
	if l.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, l.Timestamp); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
