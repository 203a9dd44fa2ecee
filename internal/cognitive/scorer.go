// Package cognitive derives a 0-100 focus score from the pace, pauses and
// filler words of a transcript.
package cognitive

import (
	"math"
	"regexp"
	"strings"
	"time"
)

const (
	// GapThreshold is the pause length that counts as a speech gap.
	GapThreshold = 2 * time.Second

	minElapsed        = 6 * time.Second
	minSpeechDuration = time.Second

	normalRateLow  = 80.0
	normalRateHigh = 200.0

	maxGapPenalty    = 40.0
	maxFillerPenalty = 50.0
	maxRatePenalty   = 30.0

	gapWeight    = 0.3
	fillerWeight = 0.4
	rateWeight   = 0.3
)

var fillerRE = regexp.MustCompile(`(?i)\b(um|uh|like|basically|actually|literally|just|right|okay|so|well|anyway|you know)\b`)

// Sample is one timestamped piece of transcript.
type Sample struct {
	Text      string
	Timestamp time.Time
}

// Metrics is the scorer output.
type Metrics struct {
	FocusScore     int           `json:"focus_score"`
	SpeechGaps     int           `json:"speech_gaps"`
	FillerWords    int           `json:"filler_words"`
	AvgSpeechRate  float64       `json:"avg_speech_rate"`
	TotalWords     int           `json:"total_words"`
	SpeechDuration time.Duration `json:"speech_duration"`
}

// Score computes focus metrics for the samples over elapsed session time.
func Score(samples []Sample, elapsed time.Duration) Metrics {
	var m Metrics

	texts := make([]string, 0, len(samples))
	for _, s := range samples {
		texts = append(texts, s.Text)
	}
	full := strings.Join(texts, " ")
	m.TotalWords = len(strings.Fields(full))
	m.FillerWords = len(fillerRE.FindAllStringIndex(full, -1))

	var excessPause time.Duration
	for i := 1; i < len(samples); i++ {
		prev := samples[i-1]
		if strings.TrimSpace(prev.Text) == "" {
			continue
		}
		delta := samples[i].Timestamp.Sub(prev.Timestamp)
		if delta > GapThreshold {
			m.SpeechGaps++
			excessPause += delta - GapThreshold
		}
	}

	m.SpeechDuration = elapsed - excessPause
	if m.SpeechDuration < minSpeechDuration {
		m.SpeechDuration = minSpeechDuration
	}
	m.AvgSpeechRate = float64(m.TotalWords) / m.SpeechDuration.Minutes()

	if elapsed < minElapsed {
		m.FocusScore = 100
		return m
	}

	minutes := elapsed.Minutes()
	gapPenalty := math.Min(float64(m.SpeechGaps)/minutes/5*maxGapPenalty, maxGapPenalty)
	fillerPenalty := math.Min(float64(m.FillerWords)/minutes/10*maxFillerPenalty, maxFillerPenalty)
	ratePenalty := RatePenalty(m.AvgSpeechRate)

	focus := 100 - (gapPenalty*gapWeight + fillerPenalty*fillerWeight + ratePenalty*rateWeight)
	m.FocusScore = int(math.Round(math.Max(0, math.Min(100, focus))))
	return m
}

// RatePenalty scores how far a words-per-minute rate sits outside the
// normal 80-200 band. Zero inside the band, capped at 30.
func RatePenalty(wpm float64) float64 {
	var p float64
	switch {
	case wpm < normalRateLow:
		p = (normalRateLow - wpm) / normalRateLow * maxRatePenalty
	case wpm > normalRateHigh:
		p = (wpm - normalRateHigh) / 100 * maxRatePenalty
	}
	return math.Min(p, maxRatePenalty)
}
