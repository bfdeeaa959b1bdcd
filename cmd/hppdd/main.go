package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/job"
	"github.com/itamaramsalem1/hppdauto-web/internal/report"
	"github.com/itamaramsalem1/hppdauto-web/internal/server"
	"github.com/itamaramsalem1/hppdauto-web/internal/sheet"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	// Env
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Column map for header discovery
	columns, err := sheet.LoadColumnMap(cfg.Sheets.ColumnMapPath)
	if err != nil {
		log.Fatalf("column map: %v", err)
	}

	// Job registry: sqlite when a DSN is configured, in-memory otherwise
	var registry job.Registry
	if cfg.Jobs.RegistryDSN != "" {
		sqliteRegistry, err := job.NewSQLiteRegistry(ctx, cfg.Jobs.RegistryDSN)
		if err != nil {
			log.Fatalf("job registry: %v", err)
		}
		defer func() { _ = sqliteRegistry.Close() }()
		registry = sqliteRegistry
		log.Infow("using sqlite job registry", "dsn", cfg.Jobs.RegistryDSN)
	} else {
		registry = job.NewMemoryRegistry()
	}

	parser := sheet.NewParser(columns, cfg.Sheets.HeaderScanRows, logger)
	writer := report.NewWriter(logger)
	manager := job.NewManager(registry, parser, writer, logger,
		job.WithWorkers(cfg.Jobs.Workers),
		job.WithQueueSize(cfg.Jobs.QueueSize),
		job.WithJobTimeout(cfg.Jobs.JobTimeout),
		job.WithRetention(cfg.Jobs.Retention),
		job.WithArtifactDir(cfg.Jobs.ArtifactDir),
	)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(manager, logger, cfg.Server.MaxUploadBytes).Router(),
	}

	go func() {
		log.Infof("http serving on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	manager.Shutdown(shutdownCtx)
	fmt.Println("stopped.")
}
