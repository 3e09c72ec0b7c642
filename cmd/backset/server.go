package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backset/backset"
	"github.com/backset/backset/config"
	"github.com/backset/backset/elements"
	elementstransport "github.com/backset/backset/elements/transport"
	kithttp "github.com/backset/backset/kit/transport/http"
	"github.com/backset/backset/sqlite"
	"github.com/backset/backset/sqlite/migrations"
	"github.com/backset/backset/tenants"
	tenantstransport "github.com/backset/backset/tenants/transport"
)

func run(cfg *config.Config) error {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	storeOpts := []sqlite.Option{
		sqlite.WithMaxConnections(cfg.MaxConnections),
		sqlite.WithMinConnections(cfg.MinConnections),
		sqlite.WithIdleTimeout(cfg.IdleTimeout),
		sqlite.WithAcquireTimeout(cfg.AcquireTimeout),
	}
	if cfg.TestBeforeAcquire {
		storeOpts = append(storeOpts, sqlite.WithPingOnStart())
	}

	store, err := sqlite.NewSqlStore(cfg.DBPath, log.With(zap.String("service", "sqlite")), storeOpts...)
	if err != nil {
		return err
	}
	defer store.Close()

	migrator := sqlite.NewMigrator(store, log.With(zap.String("service", "sqlite-migrator")))
	if err := migrator.Up(context.Background(), migrations.All); err != nil {
		return err
	}

	tenantSvc := tenants.NewService(log.With(zap.String("service", "tenants")), store)
	elementSvc := elements.NewService(log.With(zap.String("service", "elements")), store, tenantSvc.Tenants())

	handler := newRouter(log, cfg, tenantSvc, elementSvc)

	log.Info("Server listening", zap.String("addr", cfg.HTTPAddr))
	return http.ListenAndServe(cfg.HTTPAddr, handler)
}

func newRouter(log *zap.Logger, cfg *config.Config, tenantSvc backset.TenantService, elementSvc backset.ElementService) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reqMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backset",
		Name:      "http_requests_total",
		Help:      "Count of http requests received",
	}, []string{"handler", "method", "response_code"})
	durMetric := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "backset",
		Name:      "http_request_duration_seconds",
		Help:      "Time taken to respond to an http request",
	}, []string{"handler", "method", "response_code"})
	reg.MustRegister(reqMetric, durMetric)

	tenantHandler := tenantstransport.NewTenantHandler(log, tenantSvc, cfg.PageSize)
	elementHandler := elementstransport.NewElementHandler(log, elementSvc, cfg.PageSize)

	r := chi.NewRouter()
	r.Use(kithttp.Metrics("api", reqMetric, durMetric))

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount(tenantHandler.Prefix(), tenantHandler)
	// element routes claim the router root: /{tenant_id}/{element_id}
	r.Mount("/", elementHandler)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"UP","service":"backset","version":"` + backset.Version + `"}`))
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(lvl)
	return conf.Build()
}
