package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"bookcast/internal/config"
	"bookcast/internal/daemon"
	"bookcast/internal/jobs"
	"bookcast/internal/logging"
	"bookcast/internal/metrics"
	"bookcast/internal/orchestrator"
	"bookcast/internal/storage"
	"bookcast/internal/tts"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	var store *storage.Store
	if cfg.StorageConfigured() {
		store, err = storage.Open(ctx, cfg)
		if err != nil {
			logger.Error("open object store", logging.Error(err))
			return
		}
	} else {
		logger.Warn("object store not configured; submissions and delivery are disabled")
	}

	m := metrics.New()
	registry := jobs.NewRegistry()
	synth := tts.NewChain(cfg, logger)
	orch := orchestrator.New(cfg, registry, store, synth, m, logger)

	d, err := daemon.New(cfg, store, orch, m, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("bookcastd shutting down")
	d.Stop()
	orch.Wait()
}
