package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/krzko/proxy-switcheroo/internal/api"
	"github.com/krzko/proxy-switcheroo/internal/config"
	"github.com/krzko/proxy-switcheroo/internal/diag"
	"github.com/krzko/proxy-switcheroo/internal/engine"
	"github.com/krzko/proxy-switcheroo/internal/probe"
	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/scheduler"
	"github.com/krzko/proxy-switcheroo/internal/store"
	"github.com/krzko/proxy-switcheroo/internal/switcher"
	"github.com/krzko/proxy-switcheroo/internal/telemetry"
	"github.com/krzko/proxy-switcheroo/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	sink := diag.NewLogrusSink(logger)

	telemetry.Init()

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer st.Close()

	portalClient := &http.Client{Timeout: cfg.ReachabilityTimeout}
	executor := probe.NewExecutor(probe.Options{
		Portal: probe.NewHTTPPortalDetector(portalClient, cfg.PortalProbeURL),
		Timeouts: probe.Timeouts{
			Reachability: cfg.ReachabilityTimeout,
			DNS:          cfg.DNSTimeout,
			IPInfo:       cfg.IPInfoTimeout,
		},
		Sink: sink,
	})
	cache := probe.NewCache(executor, cfg.CacheTTL)
	evaluator := engine.New(cache, sink)

	activator := proxy.NewStateActivator(st, switcher.StateRecorder{Store: st}, nil, sink)
	orch := switcher.New(st, evaluator, activator, executor, sink)

	if cfg.WebhookURL != "" {
		dispatcher := webhook.NewDispatcher([]webhook.Endpoint{
			{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret},
		}, sink)
		dispatcher.Start()
		defer dispatcher.Close()
		orch.SetNotifier(dispatcher)
	}

	sched := scheduler.New(orch, cache, cfg.EvalInterval, cfg.SweepInterval, sink)
	sched.Start(ctx)
	defer sched.Stop()

	apiServer := api.NewServer(st, orch, evaluator, cfg.AdminAPIKey)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Infof("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Infof("metrics on %s", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	executor.AbortAll()
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	logger.Info("stopped")
}
