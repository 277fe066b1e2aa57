package news

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FeedConfig configures one HTTP news feed.
type FeedConfig struct {
	Name    string
	BaseURL string
	Path    string // e.g. "/news"
	APIKey  string
	Timeout time.Duration
}

// FeedClient is a Provider over a JSON news feed. Feed articles carry a
// numeric id, which is what the gateway's per-provider cursor tracks.
type FeedClient struct {
	name   string
	path   string
	apiKey string
	client *resty.Client
}

func NewFeedClient(cfg FeedConfig) *FeedClient {
	if cfg.Path == "" {
		cfg.Path = "/news"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	return &FeedClient{
		name:   cfg.Name,
		path:   cfg.Path,
		apiKey: cfg.APIKey,
		client: client,
	}
}

func (fc *FeedClient) Name() string { return fc.name }

type feedArticle struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"` // unix seconds, 0 when unknown
}

// Latest fetches the feed's current window of articles. A non-2xx status
// with an empty body is a hard failure; a non-2xx with a body is surfaced
// verbatim so the caller can decide whether to fall back.
func (fc *FeedClient) Latest(ctx context.Context) ([]Item, error) {
	req := fc.client.R().SetContext(ctx)
	if fc.apiKey != "" {
		req.SetQueryParam("token", fc.apiKey)
	}
	resp, err := req.Get(fc.path)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", fc.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s fetch: HTTP %d: %s", fc.name, resp.StatusCode(), string(resp.Body()))
	}

	var articles []feedArticle
	if err := json.Unmarshal(resp.Body(), &articles); err != nil {
		return nil, fmt.Errorf("%s parse: %w", fc.name, err)
	}

	items := make([]Item, 0, len(articles))
	for _, a := range articles {
		it := Item{
			ID:       fmt.Sprintf("%d", a.ID),
			Headline: a.Headline,
			Body:     a.Summary,
			Source:   a.Source,
			URL:      a.URL,
			Provider: fc.name,
		}
		if a.Datetime > 0 {
			it.PublishedAt = time.Unix(a.Datetime, 0).UTC()
		}
		items = append(items, it)
	}
	return items, nil
}
