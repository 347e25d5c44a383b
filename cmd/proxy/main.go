package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mira-labs/edgecache/internal/cache"
	"github.com/mira-labs/edgecache/internal/config"
	"github.com/mira-labs/edgecache/internal/engine"
	"github.com/mira-labs/edgecache/internal/health"
	"github.com/mira-labs/edgecache/internal/metrics"
	"github.com/mira-labs/edgecache/internal/registry"
	"github.com/mira-labs/edgecache/internal/transport"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "./cmd/proxy/config.yaml", "path to YAML config")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	c, err := config.Load(*configPath)
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	reg := registry.New(c.ToModel(), true)
	store := cache.NewStore(cache.DefaultCapacity)
	metricsReg := metrics.NewRegistry()
	store.OnEvict(func() { metricsReg.CacheEvictions.Inc() })
	cacheSvc := cache.NewService(store)

	tr := transport.New(transport.DefaultOptions())

	eng := engine.New(reg, cacheSvc, tr, engine.Options{
		UpstreamTimeout: c.UpstreamTimeout,
		Metrics:         metricsReg,
		Logger:          log,
	})

	checker := health.New(reg, health.Options{
		Metrics: metricsReg,
		Logger:  log,
	})
	healthCtx, stopHealth := context.WithCancel(context.Background())
	go checker.Run(healthCtx)
	defer stopHealth()

	mux := http.NewServeMux()
	mux.Handle("/", eng)
	mux.Handle("/metrics", metricsReg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		services := reg.Services()
		for i := range services {
			if len(reg.HealthyHosts(&services[i])) > 0 {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
				return
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no healthy backends"))
	})

	addr := fmt.Sprintf("%s:%d", c.Listen.Address, c.Listen.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("edgecache starting", "version", version, "addr", addr, "services", len(c.Services))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	stopHealth()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
