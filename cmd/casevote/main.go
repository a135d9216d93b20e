package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conorfennell/casevote/internal/config"
	"github.com/conorfennell/casevote/internal/export"
	"github.com/conorfennell/casevote/internal/loader"
	"github.com/conorfennell/casevote/internal/prep"
	"github.com/conorfennell/casevote/internal/storage"
	"github.com/conorfennell/casevote/internal/sync"
	"github.com/conorfennell/casevote/internal/web"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// 2. Open the database
	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Database opened successfully", "path", cfg.DB)

	// 3. Prepare the dataset
	pipeline := sync.NewPipeline(db, sync.Sources{
		CasesPath:     cfg.Cases,
		ElectionsPath: cfg.Elections,
		SnapshotDate:  cfg.SnapshotDate,
		CasesRepo:     cfg.CasesRepo,
		CasesFile:     cfg.CasesFile,
		DataDir:       cfg.DataDir,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := pipeline.Run(ctx, cfg.Sync)
	if err != nil {
		var loadErr *loader.DataLoadError
		if errors.As(err, &loadErr) {
			slog.Error("Failed to load data", "path", loadErr.Path, "column", loadErr.Column, "row", loadErr.Row, "error", loadErr.Err)
		} else {
			slog.Error("Failed to prepare dataset", "error", err)
		}
		os.Exit(1)
	}

	// 4. Optional workbook export
	if cfg.Export != "" {
		if err := export.SaveAs(cfg.Export, ds); err != nil {
			slog.Error("Failed to export workbook", "path", cfg.Export, "error", err)
			os.Exit(1)
		}
		slog.Info("Workbook exported", "path", cfg.Export)
	}

	if !cfg.Serve {
		return
	}

	// 5. Serve the dashboard
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.NewServer(ds, func(ctx context.Context) (*prep.Dataset, error) {
			return pipeline.Run(ctx, true)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Listening", "addr", cfg.Addr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}
