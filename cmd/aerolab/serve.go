package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/aerolab/internal/transport/chi"
	mcpTransport "github.com/kailas-cloud/aerolab/internal/transport/mcp"
	"github.com/kailas-cloud/aerolab/internal/usecase/docindex"
	healthuc "github.com/kailas-cloud/aerolab/internal/usecase/health"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the airplane tools over MCP or HTTP",
	}
	cmd.AddCommand(newServeMCPCmd(a), newServeHTTPCmd(a))
	return cmd
}

// optionalDocIndex builds the documentation index when its provider is
// configured. Without it the servers still offer the airplane tools.
func (a *app) optionalDocIndex(ctx context.Context, enabled bool) (*docindex.Service, healthuc.Checker, healthuc.Checker) {
	if !enabled {
		return nil, nil, nil
	}
	svc, embedder, parents, err := a.docIndex(ctx)
	if err != nil {
		a.logger.Warn("documentation search disabled", zap.Error(err))
		return nil, nil, nil
	}
	var embCheck healthuc.Checker
	if hc, ok := embedder.(healthuc.Checker); ok {
		embCheck = hc
	}
	return svc, parents, embCheck
}

func newServeMCPCmd(a *app) *cobra.Command {
	var withDocs bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool surface over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var docs mcpTransport.DocSearcher
			if svc, _, _ := a.optionalDocIndex(ctx, withDocs); svc != nil {
				docs = svc
			}

			srv := mcpTransport.NewServer(a.airplanes(), docs, a.logger)
			a.logger.Info("MCP server listening on stdio", zap.Bool("docs", docs != nil))
			if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDocs, "docs", false, "also expose search_docs (needs the embedding provider key)")
	return cmd
}

func newServeHTTPCmd(a *app) *cobra.Command {
	var (
		port     int
		withDocs bool
	)
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			health := healthuc.New(store)
			var docs chiTransport.DocSearcher
			svc, parentCheck, embCheck := a.optionalDocIndex(ctx, withDocs)
			if svc != nil {
				docs = svc
				health.With("docstore", parentCheck).With("embedding", embCheck)
			}

			server := chiTransport.NewServer(a.airplanes(), docs, health, a.logger)
			if svc != nil {
				u, err := a.usage(ctx)
				if err != nil {
					return err
				}
				server.WithUsage(u)
			}
			if len(a.secrets.HTTPAPIKeys) == 0 {
				a.logger.Warn("no API keys configured, HTTP API is open")
			}

			h := a.cfg.HTTP
			if port == 0 {
				port = h.Port
			}
			addr := fmt.Sprintf(":%d", port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      server.Router(a.secrets.HTTPAPIKeys),
				ReadTimeout:  time.Duration(h.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(h.WriteTimeoutSec) * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.logger.Info("Starting HTTP server", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
				a.logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(h.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Error during shutdown", zap.Error(err))
			}
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&withDocs, "docs", true, "serve documentation search (needs the embedding provider key)")
	return cmd
}
