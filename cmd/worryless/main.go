package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ita-prog/worryless/internal/backend"
	"github.com/ita-prog/worryless/internal/cli"
	"github.com/ita-prog/worryless/internal/config"
	"github.com/ita-prog/worryless/internal/gateway"
	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/metrics"
	"github.com/ita-prog/worryless/internal/mmapi"
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/refresh"
	"github.com/ita-prog/worryless/internal/session"
	"github.com/ita-prog/worryless/internal/storage"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := logging.NewDefault(level)

	var vault backend.Store
	if v, err := storage.Open(ctx, cfg.DataDir); err != nil {
		log.Warn(ctx, "credential vault unavailable, running without persistence",
			"dir", cfg.DataDir, "error", err)
	} else {
		vault = v
		defer v.Close()
	}

	api := mmapi.New(log, cfg.RequestTimeout)
	be := backend.New(api, vault, log, []models.Server{{Name: cfg.ServerName, URL: cfg.ServerURL}})
	be.Load(ctx)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler(reg)); err != nil {
				log.Error(ctx, "metrics listener stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	gw := gateway.New(be, log, collector)
	store := session.NewStore(session.PageState{})
	refresher := refresh.New(gw, store, log, collector)
	refresher.SetPageSize(cfg.UserPageSize)

	app := cli.NewApp(refresher, store, log)
	app.Run(ctx)
}
