package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phishsense/phishsense/internal/batch"
	"github.com/phishsense/phishsense/internal/classifier"
	"github.com/phishsense/phishsense/internal/feature"
	"github.com/phishsense/phishsense/internal/platform/config"
	"github.com/phishsense/phishsense/internal/platform/logger"
	"github.com/phishsense/phishsense/internal/platform/middleware"
	"github.com/phishsense/phishsense/internal/probe"
	"github.com/phishsense/phishsense/internal/report"
	"github.com/phishsense/phishsense/internal/scanner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("phishsense starting", "port", cfg.Port)

	model, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		log.Error("loading model artifact", "path", cfg.ModelPath, "error", err)
		os.Exit(1)
	}

	probes := feature.Probes{
		DNS:   probe.NewDNSProber(),
		Whois: probe.NewWhoisProber(),
		TLS:   probe.NewTLSProber(),
		Page:  probe.NewPageProber(probe.NewHTTPClient(cfg.ProbeTimeout)),
	}
	extractor := feature.NewExtractor(probes, cfg.ProbeTimeout)

	coordinator := batch.NewCoordinator(extractor, model, batch.Options{
		Concurrency:      cfg.ScanConcurrency,
		PerRecordTimeout: cfg.PerRecordTimeout,
		BatchTimeout:     cfg.BatchTimeout,
		MinConfidence:    cfg.MinConfidence,
	}, log)

	store, err := report.Open(cfg.ReportDBPath)
	if err != nil {
		log.Error("opening report store", "path", cfg.ReportDBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	service := scanner.NewService(coordinator, store, log)
	transport := scanner.NewTransport(service, cfg.MaxBatchURLs, log)

	mux := http.NewServeMux()
	transport.RegisterRoutes(mux)

	handler := middleware.RequestID(middleware.Logging(log)(mux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	log.Info("server exited")
}
