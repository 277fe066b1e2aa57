package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/marketbrief/signal-engine/internal/config"
	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/marketdata"
	"github.com/marketbrief/signal-engine/internal/news"
	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/outcomes"
	"github.com/marketbrief/signal-engine/internal/signalgen"
	"github.com/marketbrief/signal-engine/internal/store"
	"github.com/marketbrief/signal-engine/internal/telemetry"
)

type app struct {
	gateway *news.Gateway
	signals *signalgen.Service
	runner  *outcomes.Runner
	bars    marketdata.BarsProvider
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		observ.LogError("config_load_failed", err, map[string]any{"path": *configPath})
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	kv, err := store.Connect(ctx, cfg.Redis.URL)
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
	barCache := marketdata.NewBarCache(kv, barsClient)

	primary := news.NewFeedClient(news.FeedConfig{
		Name:    cfg.NewsPrimary.Name,
		BaseURL: cfg.NewsPrimary.BaseURL,
		Path:    cfg.NewsPrimary.Path,
		APIKey:  os.Getenv(cfg.NewsPrimary.APIKeyEnv),
		Timeout: time.Duration(cfg.NewsPrimary.TimeoutSeconds) * time.Second,
	})
	secondary := news.NewFeedClient(news.FeedConfig{
		Name:    cfg.NewsSecondary.Name,
		BaseURL: cfg.NewsSecondary.BaseURL,
		Path:    cfg.NewsSecondary.Path,
		APIKey:  os.Getenv(cfg.NewsSecondary.APIKeyEnv),
		Timeout: time.Duration(cfg.NewsSecondary.TimeoutSeconds) * time.Second,
	})
	classifier := news.NewHTTPClassifier(news.ClassifierConfig{
		BaseURL: cfg.ModelAPI.BaseURL,
		APIKey:  os.Getenv(cfg.ModelAPI.APIKeyEnv),
		Timeout: time.Duration(cfg.ModelAPI.TimeoutSeconds) * time.Second,
	})

	gateway := news.NewGateway(primary, secondary, classifier, kv, news.GatewayConfig{
		LookbackHours:    cfg.Ingest.LookbackHours,
		MinFetchCount:    cfg.Ingest.MinFetchCount,
		PrefilterMin:     cfg.Ingest.PrefilterMin,
		ThresholdNormal:  cfg.Ingest.ThresholdNormal,
		ThresholdLow:     cfg.Ingest.ThresholdLow,
		ThresholdMacro:   cfg.Ingest.ThresholdMacro,
		DailyClassifyCap: cfg.Ingest.DailyClassifyCap,
		MaxEvents:        cfg.Ingest.MaxEvents,
		SeenURLCap:       cfg.Ingest.SeenURLCap,
	})

	tele := telemetry.NewWriter(kv)
	thesisGen := signalgen.NewHTTPThesisGenerator(signalgen.ThesisConfig{
		BaseURL: cfg.ModelAPI.BaseURL,
		APIKey:  os.Getenv(cfg.ModelAPI.APIKeyEnv),
		Timeout: time.Duration(cfg.ModelAPI.TimeoutSeconds) * time.Second,
	})
	signals := signalgen.NewService(kv, confidence.New(cfg.Signals.ModelVersion), gateway,
		thesisGen, signalgen.NewStoreEcho(kv), barCache, tele)
	runner := outcomes.NewRunner(kv, tele, barCache, outcomes.Config{
		LookbackDays: cfg.Outcomes.LookbackDays,
		ForwardDays:  cfg.Outcomes.ForwardDays,
	})

	a := &app{gateway: gateway, signals: signals, runner: runner, bars: barsClient}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", observ.Handler())
	r.Post("/v1/ingest/run", a.handleIngest)
	r.Post("/v1/signals/generate", a.handleGenerate)
	r.Post("/v1/outcomes/run", a.handleOutcomes)

	observ.Log("server_start", map[string]any{"addr": cfg.Server.Addr})
	if err := http.ListenAndServe(cfg.Server.Addr, r); err != nil {
		observ.LogError("server_stopped", err, nil)
		os.Exit(1)
	}
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.bars.HealthCheck(ctx); err != nil {
		writeJSON(w, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// Business failures come back as 200 with ok=false; 5xx is reserved for a
// server that is not wired up at all.
func (a *app) handleIngest(w http.ResponseWriter, r *http.Request) {
	kept, diag, err := a.gateway.Ingest(r.Context())
	if err != nil {
		writeJSON(w, map[string]any{"ok": false, "error": err.Error(), "diagnostics": diag})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "kept": kept, "diagnostics": diag})
}

func (a *app) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == "" {
		writeJSON(w, map[string]any{"ok": false, "error": "event_id is required"})
		return
	}

	res, err := a.signals.Generate(r.Context(), body.EventID)
	if err != nil {
		var ge *signalgen.GenError
		if errors.As(err, &ge) {
			writeJSON(w, map[string]any{"ok": false, "code": ge.Code, "error": ge.Message})
			return
		}
		writeJSON(w, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "result": res})
}

func (a *app) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Date == "" {
		writeJSON(w, map[string]any{"ok": false, "error": "date (YYYY-MM-DD) is required"})
		return
	}

	res, err := a.runner.RunForDate(r.Context(), body.Date)
	if err != nil {
		writeJSON(w, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "result": res})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
