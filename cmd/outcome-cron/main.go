// outcome-cron resolves realized outcomes for one day's signals and
// exits. Safe to run concurrently with itself: already-computed signals
// are skipped and in-flight ones are guarded by advisory locks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/marketbrief/signal-engine/internal/config"
	"github.com/marketbrief/signal-engine/internal/marketdata"
	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/outcomes"
	"github.com/marketbrief/signal-engine/internal/store"
	"github.com/marketbrief/signal-engine/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	date := flag.String("date", "", "UTC date to process (YYYY-MM-DD), defaults to yesterday")
	flag.Parse()

	if *date == "" {
		*date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		observ.LogError("config_load_failed", err, map[string]any{"path": *configPath})
		os.Exit(1)
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	kv, err := store.Connect(connectCtx, cfg.Redis.URL)
	cancel()
	if err != nil {
		observ.LogError("redis_connect_failed", err, map[string]any{"url": cfg.Redis.URL})
		os.Exit(1)
	}
	defer kv.Close()

	barsClient, err := marketdata.NewHTTPBarsClient(marketdata.HTTPBarsConfig{
		Provider:      cfg.MarketData.Provider,
		BaseURL:       cfg.MarketData.BaseURL,
		APIKey:        os.Getenv(cfg.MarketData.APIKeyEnv),
		RatePerMinute: cfg.MarketData.RatePerMinute,
		Timeout:       time.Duration(cfg.MarketData.TimeoutSeconds) * time.Second,
		MaxRetries:    cfg.MarketData.MaxRetries,
	})
	if err != nil {
		observ.LogError("market_data_config_invalid", err, nil)
		os.Exit(1)
	}
	defer barsClient.Close()

	runner := outcomes.NewRunner(kv, telemetry.NewWriter(kv), marketdata.NewBarCache(kv, barsClient), outcomes.Config{
		LookbackDays: cfg.Outcomes.LookbackDays,
		ForwardDays:  cfg.Outcomes.ForwardDays,
	})

	res, err := runner.RunForDate(ctx, *date)
	if err != nil {
		observ.LogError("outcome_run_failed", err, map[string]any{"date": *date})
		os.Exit(1)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
