package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-boot/examples/shop"
	"github.com/km-arc/go-boot/framework/app"
	"github.com/km-arc/go-boot/framework/config"
	"github.com/km-arc/go-boot/framework/container"
	"github.com/km-arc/go-boot/framework/logging"
	"github.com/km-arc/go-boot/framework/manifest"
)

func main() {
	cfg := config.Load() // loads .env automatically

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	// ── Services: from a manifest when configured, else the shop module ──────

	if path := cfg.Container.Manifest; path != "" {
		scope, err := container.ParseLifetime(cfg.Container.DefaultScope)
		if err != nil {
			logger.Fatal("bad default scope", zap.Error(err))
		}
		m, err := manifest.LoadFile(path, scope)
		if err != nil {
			logger.Fatal("manifest load failed", zap.String("path", path), zap.Error(err))
		}
		if err := application.RegisterManifest(m, shop.Constructors()); err != nil {
			logger.Fatal("manifest registration failed", zap.Error(err))
		}
	} else if err := application.Register(&shop.Module{}); err != nil {
		logger.Fatal("module registration failed", zap.Error(err))
	}

	if err := application.Bootstrap(); err != nil {
		logger.Error("module boot failed", zap.Error(err))
	}
	if application.Degraded() {
		logger.Warn("running without dependency injection")
	}

	shop.Routes(application.Router(), application)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
