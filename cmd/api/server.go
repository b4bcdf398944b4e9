package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/auto-qm-form/pkg/interceptors"
	"github.com/FACorreiaa/auto-qm-form/pkg/respond"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// Router mounts every domain route plus /health and /files/{file_id}
// behind the middleware chain
func (d *Dependencies) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler(d.Config.App.Env))
	mux.HandleFunc("GET /files/{file_id}", filesHandler(d.FileStorage, d.Logger))

	d.BudgetHandler.RegisterRoutes(mux)
	d.SpecsHandler.RegisterRoutes(mux)
	d.ReferenceHandler.RegisterRoutes(mux)
	d.FormHandler.RegisterRoutes(mux)

	return interceptors.Chain(mux,
		interceptors.Recover(d.Logger),
		interceptors.Logging(d.Logger, d.Metrics),
		interceptors.CORS(d.Config.Server.AllowedOrigins),
		interceptors.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst),
	)
}

// Serve runs the API server, the metrics server when enabled and the cron
// scheduler until ctx is cancelled, then shuts them down.
func (d *Dependencies) Serve(ctx context.Context) error {
	servers := []*http.Server{{
		Addr:              d.Config.Server.Addr(),
		Handler:           d.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if d.Config.Observability.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", d.Metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Observability.MetricsPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	if err := d.Scheduler.Start(); err != nil {
		return err
	}
	defer func() { <-d.Scheduler.Stop().Done() }()

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			d.Logger.Info("http server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				d.Logger.Warn("server shutdown", slog.String("addr", srv.Addr), slog.Any("error", err))
			}
		}
		return nil
	})

	return g.Wait()
}

func healthHandler(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok", "env": env})
	}
}

// filesHandler streams a stored blob as an attachment
func filesHandler(store storage.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID, err := uuid.Parse(r.PathValue("file_id"))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid file_id")
			return
		}

		rc, info, err := store.Download(r.Context(), fileID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusNotFound, "file not found")
				return
			}
			logger.Error("file download failed", slog.String("file_id", fileID.String()), slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, "download failed")
			return
		}
		defer rc.Close()

		contentType := info.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, rc); err != nil {
			logger.Warn("file download interrupted", slog.String("file_id", fileID.String()), slog.Any("error", err))
		}
	}
}
