package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `yaml:"addr"`
}

type Redis struct {
	URL string `yaml:"url"` // overridden by REDIS_URL when set
}

type MarketData struct {
	Provider       string `yaml:"provider"` // cache key namespace, e.g. "TIINGO"
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	RatePerMinute  int    `yaml:"rate_per_minute"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type NewsFeed struct {
	Name           string `yaml:"name"`
	BaseURL        string `yaml:"base_url"`
	Path           string `yaml:"path"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ModelAPI struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Ingest struct {
	LookbackHours    int `yaml:"lookback_hours"`
	MinFetchCount    int `yaml:"min_fetch_count"`
	PrefilterMin     int `yaml:"prefilter_min"`
	ThresholdNormal  int `yaml:"threshold_normal"`
	ThresholdLow     int `yaml:"threshold_low"`
	ThresholdMacro   int `yaml:"threshold_macro"`
	DailyClassifyCap int `yaml:"daily_classify_cap"`
	MaxEvents        int `yaml:"max_events"`
	SeenURLCap       int `yaml:"seen_url_cap"`
}

type Signals struct {
	ModelVersion int `yaml:"model_version"`
}

type Outcomes struct {
	LookbackDays int `yaml:"lookback_days"` // calendar days of history before t0
	ForwardDays  int `yaml:"forward_days"`  // calendar days fetched after t0
}

type Root struct {
	Server        Server     `yaml:"server"`
	Redis         Redis      `yaml:"redis"`
	MarketData    MarketData `yaml:"market_data"`
	NewsPrimary   NewsFeed   `yaml:"news_primary"`
	NewsSecondary NewsFeed   `yaml:"news_secondary"`
	ModelAPI      ModelAPI   `yaml:"model_api"`
	Ingest        Ingest     `yaml:"ingest"`
	Signals       Signals    `yaml:"signals"`
	Outcomes      Outcomes   `yaml:"outcomes"`
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "localhost:6379"
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}

	if c.MarketData.Provider == "" {
		c.MarketData.Provider = "TIINGO"
	}
	if c.MarketData.APIKeyEnv == "" {
		c.MarketData.APIKeyEnv = "MARKET_DATA_API_KEY"
	}
	if c.MarketData.RatePerMinute == 0 {
		c.MarketData.RatePerMinute = 60
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 10
	}
	if c.MarketData.MaxRetries == 0 {
		c.MarketData.MaxRetries = 3
	}

	if c.NewsPrimary.Name == "" {
		c.NewsPrimary.Name = "primary"
	}
	if c.NewsSecondary.Name == "" {
		c.NewsSecondary.Name = "secondary"
	}
	for _, f := range []*NewsFeed{&c.NewsPrimary, &c.NewsSecondary} {
		if f.Path == "" {
			f.Path = "/news"
		}
		if f.TimeoutSeconds == 0 {
			f.TimeoutSeconds = 15
		}
	}

	if c.ModelAPI.TimeoutSeconds == 0 {
		c.ModelAPI.TimeoutSeconds = 30
	}
	if c.ModelAPI.APIKeyEnv == "" {
		c.ModelAPI.APIKeyEnv = "MODEL_API_KEY"
	}

	if c.Ingest.LookbackHours == 0 {
		c.Ingest.LookbackHours = 24
	}
	if c.Ingest.MinFetchCount == 0 {
		c.Ingest.MinFetchCount = 5
	}
	if c.Ingest.PrefilterMin == 0 {
		c.Ingest.PrefilterMin = 20
	}
	if c.Ingest.ThresholdNormal == 0 {
		c.Ingest.ThresholdNormal = 70
	}
	if c.Ingest.ThresholdLow == 0 {
		c.Ingest.ThresholdLow = 60
	}
	if c.Ingest.ThresholdMacro == 0 {
		c.Ingest.ThresholdMacro = 50
	}
	if c.Ingest.DailyClassifyCap == 0 {
		c.Ingest.DailyClassifyCap = 200
	}
	if c.Ingest.MaxEvents == 0 {
		c.Ingest.MaxEvents = 100
	}
	if c.Ingest.SeenURLCap == 0 {
		c.Ingest.SeenURLCap = 1000
	}

	if c.Signals.ModelVersion == 0 {
		c.Signals.ModelVersion = 1
	}

	if c.Outcomes.LookbackDays == 0 {
		c.Outcomes.LookbackDays = 10
	}
	if c.Outcomes.ForwardDays == 0 {
		c.Outcomes.ForwardDays = 10
	}

	return c, nil
}
