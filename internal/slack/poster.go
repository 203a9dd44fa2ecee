package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostSessionSummary posts the post-session report to the configured
// channel and returns the message timestamp.
func (p *Poster) PostSessionSummary(ctx context.Context, sum session.Summary) (string, error) {
	text := formatSummaryMessage(sum)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Session `%s`", sum.SessionID),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted session summary to slack", "ts", slackResp.TS, "session_id", sum.SessionID)
	return slackResp.TS, nil
}

func formatSummaryMessage(sum session.Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Negotiation summary:* %s (%s)\n", scenarioLabel(sum.Scenario), sum.Duration.Round(time.Second))
	fmt.Fprintf(&sb, "*Focus score:* %d | *Objections:* %d | *Positive signals:* %d\n\n",
		sum.FocusScore, sum.ObjectionCount, sum.PositiveSignalCount)

	if len(sum.LeverageMoments) > 0 {
		sb.WriteString("*Leverage moments*\n")
		writeMoments(&sb, sum.LeverageMoments)
		sb.WriteString("\n")
	}

	if len(sum.MissedOpportunities) > 0 {
		sb.WriteString("*Missed opportunities*\n")
		writeMoments(&sb, sum.MissedOpportunities)
		sb.WriteString("\n")
	}

	if len(sum.TacticalSuggestions) > 0 {
		sb.WriteString("*Next time*\n")
		for _, s := range sum.TacticalSuggestions {
			fmt.Fprintf(&sb, "• %s\n", s)
		}
		sb.WriteString("\n")
	}

	for _, insight := range sum.KeyInsights {
		fmt.Fprintf(&sb, "_%s_\n", insight)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writeMoments(sb *strings.Builder, ps []classifier.DetectedPattern) {
	for i, p := range ps {
		name := p.Name
		if name == "" {
			name = string(p.Tactic)
		}
		fmt.Fprintf(sb, "%d. %s (%d%%)", i+1, name, p.Confidence)
		if p.MatchedContext != "" {
			fmt.Fprintf(sb, ": \"%s\"", p.MatchedContext)
		}
		sb.WriteString("\n")
	}
}

func scenarioLabel(s catalog.Scenario) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
