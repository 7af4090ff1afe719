// Command dicomslicer serves the DICOM slice-extraction web application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dicomslicer/internal/config"
	"dicomslicer/internal/pipeline"
	"dicomslicer/internal/store"
	"dicomslicer/internal/web"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	configFile := flag.String("config", "", "Load configuration from YAML file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	backend := flag.String("storage", "", "Storage backend: local or s3 (overrides config)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dicomslicer %s\n", version)
		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log, *configFile, *addr, *backend); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, configFile, addr, backend string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", "err", err)
		}
	}()

	pipe := &pipeline.Pipeline{
		Log:        log,
		Annotate:   cfg.Pipeline.Annotate,
		ThumbWidth: cfg.Pipeline.ThumbnailWidth,
	}

	srv, err := web.New(st, pipe, web.Options{
		Log:            log,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Retention:      cfg.Retention(),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Backend, "version", version)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return store.NewMinio(ctx, cfg.Storage.S3.ToStoreConfig(), log)
	default:
		st, err := store.NewLocal(log)
		if err != nil {
			return nil, err
		}
		log.Info("local storage ready", "root", st.Root())
		return st, nil
	}
}
