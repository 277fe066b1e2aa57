package signalgen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/news"
)

// ThesisGenerator produces a structured trade thesis for an event. The
// model call is external; malformed output is a fatal, explicit error
// here, never a silently substituted default.
type ThesisGenerator interface {
	Generate(ctx context.Context, ev news.Event) (*confidence.Thesis, error)
}

// HTTPThesisGenerator calls the external model API's /thesis endpoint.
type HTTPThesisGenerator struct {
	client *resty.Client
	apiKey string
}

type ThesisConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewHTTPThesisGenerator(cfg ThesisConfig) *HTTPThesisGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	return &HTTPThesisGenerator{client: client, apiKey: cfg.APIKey}
}

func (g *HTTPThesisGenerator) Generate(ctx context.Context, ev news.Event) (*confidence.Thesis, error) {
	req := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"event_id": ev.ID,
			"headline": ev.Headline,
			"body":     ev.Body,
			"analysis": ev.Analysis,
		})
	if g.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := req.Post("/thesis")
	if err != nil {
		return nil, fmt.Errorf("thesis request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("thesis request: HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var th confidence.Thesis
	if err := json.Unmarshal(resp.Body(), &th); err != nil {
		return nil, fmt.Errorf("thesis parse: %w", err)
	}
	return &th, nil
}
