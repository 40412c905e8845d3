package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"signaldesk/config"
	"signaldesk/internal/analysis"
	"signaldesk/internal/api"
	"signaldesk/internal/gateway"
	"signaldesk/internal/logger"
	"signaldesk/internal/marketdata"
	"signaldesk/internal/markethours"
	"signaldesk/internal/metrics"
	"signaldesk/internal/model"
	"signaldesk/internal/notification"
	"signaldesk/internal/scheduler"
	"signaldesk/internal/signald"
	redisstore "signaldesk/internal/store/redis"
	sqlitestore "signaldesk/internal/store/sqlite"
	"signaldesk/pkg/smartconnect"
)

func main() {
	cfg, err := config.Load()
	log := logger.Init("signald", logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	prom := metrics.NewMetrics(nil)

	// ---- Redis (optional) ----
	var rstore *redisstore.Store
	if cfg.RedisAddr != "" {
		var err error
		rstore, err = redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			return err
		}
		defer rstore.Close()
		rstore.Breaker().OnStateChange = func(from, to redisstore.State) {
			prom.SetBreakerState(int(to))
			log.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
		}
	}

	// ---- SQLite (optional, degrade on failure) ----
	var sstore *sqlitestore.Store
	if cfg.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			log.Warn("sqlite directory", "error", err)
		}
		var err error
		sstore, err = sqlitestore.New(cfg.SQLitePath)
		if err != nil {
			log.Warn("sqlite init failed, continuing without archive", "error", err)
			sstore = nil
		} else {
			defer sstore.Close()
		}
	}

	source, err := buildSource(cfg, prom)
	if err != nil {
		return err
	}

	hub := gateway.NewHub(256)
	health := metrics.NewHealthStatus(rstore != nil, sstore != nil)

	deps := signald.Deps{
		Source:   source,
		Notifier: buildNotifier(cfg),
		Metrics:  prom,
		Health:   health,
	}
	var runners []func(context.Context) error
	var redisPing, sqlitePing metrics.Pinger

	if rstore != nil {
		deps.Source = marketdata.NewCachedSource(source, rstore, cfg.BarInterval, cfg.BarCacheTTL)
		deps.Publisher = rstore
		redisPing = rstore
		runners = append(runners, func(ctx context.Context) error {
			return hub.RunPubSub(ctx, rstore.Client())
		})
	} else {
		deps.Publisher = hub
	}
	if sstore != nil {
		deps.Archive = sstore
		deps.Signals = sstore
		sqlitePing = sstore
	}
	if cfg.GeminiAPIKey != "" {
		lane := scheduler.New(scheduler.Config{
			Name:     "analysis",
			Interval: cfg.AnalysisMinInterval,
			Observer: prom,
		})
		gemini := &analysis.GeminiClient{
			BaseURL: cfg.GeminiBaseURL,
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
		}
		deps.Analyzer = analysis.NewAnalyzer(gemini, lane, log, prom.ObserveAnalysisError)
	} else {
		log.Warn("GEMINI_API_KEY not set, signal generation disabled")
	}

	opts := signald.Options{
		Symbols:     cfg.Symbols,
		Interval:    cfg.BarInterval,
		RefreshSpec: cfg.RefreshSpec,
	}
	if cfg.Session == "nse" {
		opts.Session = markethours.NSE
	}
	svc, err := signald.New(opts, deps)
	if err != nil {
		return err
	}

	router := api.NewRouter(svc, api.Options{Health: health, WS: hub})
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, nil)

	runners = append(runners,
		func(ctx context.Context) error { return serveHTTP(ctx, log, cfg.HTTPAddr, router) },
		metricsSrv.Run,
		func(ctx context.Context) error {
			health.RunLivenessChecker(ctx, redisPing, sqlitePing, 15*time.Second)
			return nil
		},
	)

	log.Info("signald starting",
		"symbols", cfg.Symbols,
		"interval", cfg.BarInterval,
		"source", cfg.Source,
		"redis", rstore != nil,
		"sqlite", sstore != nil,
		"http", cfg.HTTPAddr,
	)
	return svc.Run(ctx, runners...)
}

func buildSource(cfg *config.Config, obs scheduler.Observer) (model.BarSource, error) {
	switch cfg.Source {
	case "angel":
		client := smartconnect.New(smartconnect.Config{APIKey: cfg.AngelAPIKey})
		lane := scheduler.New(scheduler.Config{
			Name:     "angel",
			Interval: cfg.CandleMinInterval,
			Observer: obs,
		})
		return marketdata.NewAngelSource(client, marketdata.AngelCredentials{
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
		}, lane, cfg.BarInterval, cfg.BarLimit)
	case "binance":
		return marketdata.NewBinanceSource(cfg.BarInterval, cfg.BarLimit, cfg.BinanceURL)
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	return notifiers
}

func serveHTTP(ctx context.Context, log *slog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
