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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"legal-docs/internal/app"
	"legal-docs/internal/httputil"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("close dependencies", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           routes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("web server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("server stopped")
}

func routes(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)

	r.Get("/", pageHandler(deps))
	r.Post("/upload", uploadPageHandler(deps))
	r.Post("/extract", extractPageHandler(deps))
	r.Post("/summarize", summarizePageHandler(deps))
	r.Post("/draft", draftPageHandler(deps))

	r.Route("/api", func(r chi.Router) {
		r.Post("/documents", uploadHandler(deps))
		r.Post("/clauses", clausesHandler(deps))
		r.Post("/summary", summaryHandler(deps))
		r.Post("/draft", draftHandler(deps))
		r.Post("/index", indexBuildHandler(deps))
		r.Get("/index/search", indexSearchHandler(deps))
	})

	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}
