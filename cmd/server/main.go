// Command server starts the talent finder backend-for-frontend.
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

	"github.com/fairyhunter13/talentfinder/internal/adapter/httpserver"
	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/app"
	"github.com/fairyhunter13/talentfinder/internal/config"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	components, err := app.New(cfg)
	if err != nil {
		slog.Error("wiring failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer components.Close()

	components.Search.OnChange(func(st domain.SearchState) {
		slog.Debug("search state", slog.Uint64("seq", st.Seq), slog.String("phase", string(st.Phase)), slog.Int("total", st.Total))
	})
	components.Uploads.OnChange(func(st domain.UploadJobState) {
		slog.Debug("upload state", slog.String("job_id", st.JobID), slog.String("status", string(st.Status)), slog.Int("processed", st.ProcessedFiles))
	})
	srv := httpserver.NewServer(cfg,
		components.Search,
		components.Uploads,
		components.Client,
		components.Auth,
		components.Admin,
		app.BuildReadinessChecks(components.Client, components.Store)...,
	)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("talent_api", cfg.TalentAPIBaseURL),
			slog.String("token_store", cfg.TokenStore),
		)
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
