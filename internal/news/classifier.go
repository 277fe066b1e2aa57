package news

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClassifier talks to the external classification service. The model
// behind it is not this system's concern; a classifier failure on one
// item is per-item-skippable at the gateway.
type HTTPClassifier struct {
	client *resty.Client
	apiKey string
}

type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewHTTPClassifier(cfg ClassifierConfig) *HTTPClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	return &HTTPClassifier{client: client, apiKey: cfg.APIKey}
}

func (c *HTTPClassifier) Classify(ctx context.Context, headline, body string) (*Analysis, error) {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"headline": headline, "body": body})
	if c.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := req.Post("/classify")
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("classify: HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var analysis Analysis
	if err := json.Unmarshal(resp.Body(), &analysis); err != nil {
		return nil, fmt.Errorf("classify parse: %w", err)
	}
	if analysis.ImportanceScore < 0 {
		analysis.ImportanceScore = 0
	}
	if analysis.ImportanceScore > 100 {
		analysis.ImportanceScore = 100
	}
	return &analysis, nil
}
