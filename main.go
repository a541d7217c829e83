package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biasaudit/internal/config"
	"biasaudit/internal/container"
	"biasaudit/internal/logging"
	"biasaudit/ui"

	"go.uber.org/zap"
)

func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(appConfig.Log.Level, appConfig.Log.Development)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		logger.Fatal("failed to create application container", zap.Error(err))
	}

	// The ledger is optional; audits run statelessly without it
	if appConfig.Database.URL != "" {
		if err := appContainer.InitWithDatabase(ctx); err != nil {
			logger.Fatal("failed to initialize report ledger", zap.Error(err))
		}
	} else {
		logger.Info("DATABASE_URL not set, report ledger disabled")
	}

	server := ui.NewServer(appConfig.Server, appContainer.Service, appContainer.Reader, logger)

	var admin *http.Server
	if appConfig.Admin.Enabled {
		admin = &http.Server{
			Addr:              ":" + appConfig.Admin.Port,
			Handler:           ui.NewAdminRouter(appContainer.Registry),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("admin listening", zap.String("addr", admin.Addr))
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("api server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin shutdown", zap.Error(err))
		}
	}
	if err := appContainer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("container shutdown", zap.Error(err))
	}
}
