// Package transcript holds the ordered chunk list a session accumulates and
// the sentence-merge rule applied on append.
package transcript

import (
	"strings"
	"time"
	"unicode"

	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/cognitive"
)

// SentencePause is the silence after which a new fragment starts a new
// chunk even when the previous one has no terminal punctuation.
const SentencePause = 10 * time.Second

// Chunk is one sentence (or sentence fragment) of transcript.
type Chunk struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	UpdatedAt  time.Time `json:"updated_at"`
	HasPattern bool      `json:"has_pattern"`
}

// Append returns a new list with text added. A fragment continuing an
// unfinished sentence is merged into the last chunk. Blank text returns the
// input unchanged. The input slice is never modified.
func Append(chunks []Chunk, id, text string, at time.Time) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return chunks
	}

	out := make([]Chunk, len(chunks), len(chunks)+1)
	copy(out, chunks)

	if n := len(out); n > 0 && continuesSentence(out[n-1], at) {
		last := out[n-1]
		last.Text = last.Text + " " + text
		last.UpdatedAt = at
		out[n-1] = last
		return out
	}

	return append(out, Chunk{
		ID:        id,
		Text:      text,
		Timestamp: at,
		UpdatedAt: at,
	})
}

func continuesSentence(last Chunk, at time.Time) bool {
	if endsSentence(last.Text) {
		return false
	}
	return at.Sub(last.UpdatedAt) <= SentencePause
}

func endsSentence(text string) bool {
	text = strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\'' || r == ')' || r == '”'
	})
	if text == "" {
		return true
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	}
	return strings.HasSuffix(text, "…")
}

// Segments returns the last n chunks as classifier input. Each segment is
// stamped with its chunk's start time, which stays fixed when later fragments
// are merged in.
func Segments(chunks []Chunk, n int) []classifier.Segment {
	if n <= 0 || len(chunks) == 0 {
		return nil
	}
	start := len(chunks) - n
	if start < 0 {
		start = 0
	}
	out := make([]classifier.Segment, 0, len(chunks)-start)
	for _, c := range chunks[start:] {
		out = append(out, classifier.Segment{ID: c.ID, Text: c.Text, At: c.Timestamp})
	}
	return out
}

// Samples converts chunks for the cognitive scorer.
func Samples(chunks []Chunk) []cognitive.Sample {
	out := make([]cognitive.Sample, len(chunks))
	for i, c := range chunks {
		out[i] = cognitive.Sample{Text: c.Text, Timestamp: c.Timestamp}
	}
	return out
}
