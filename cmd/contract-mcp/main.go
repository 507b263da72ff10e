// Command contract-mcp runs the ingestion-contract MCP server.
//
// The server exposes contract generation and source analysis as MCP tools
// over stdio (default, for client-spawned processes) or streamable HTTP.
// Configuration comes from config.yaml plus CONTRACT_* environment
// variables; see internal/config. All logging goes to stderr so stdout
// stays a clean protocol channel in stdio mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/config"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/logging"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/mcp"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/mcp/tools"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/metrics"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/metrics/datadog"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/probe"
)

const serverName = "ingestion-contract-generator"

// version is stamped by the build; "dev" for local go run.
var version = "dev"

func main() {
	cfgPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml, missing file is fine)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "contract-mcp: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "contract-mcp: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is uninteresting at exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeMetrics, err := buildMetrics(ctx, cfg)
	if err != nil {
		logger.Fatal("metrics backend", zap.Error(err))
	}
	defer closeMetrics()

	srv := mcp.NewServer(serverName, cfg.Version, logger)
	tools.RegisterAll(srv.MCP(), &tools.Deps{
		Logger:  logger,
		Metrics: backend,
		FileSampling: probe.Options{
			MaxBytes:   cfg.Analysis.MaxBytes,
			SampleRows: cfg.Analysis.SampleRows,
		},
		DBSampleRows: cfg.Analysis.DBSampleRows,
	})

	logger.Info("starting server",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("transport", cfg.Transport),
	)

	switch cfg.Transport {
	case "http":
		serveHTTP(ctx, srv, cfg, logger)
	default:
		if err := srv.ServeStdio(); err != nil {
			logger.Fatal("stdio transport", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}

// buildMetrics returns the configured backend and a close function that
// performs the final flush. Disabled metrics get a Nop backend and a no-op
// close.
func buildMetrics(ctx context.Context, cfg *config.Config) (metrics.Backend, func(), error) {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}, func() {}, nil
	}
	var tags []string
	for _, t := range strings.Split(cfg.Metrics.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	b, err := datadog.NewBackend(ctx, datadog.Options{
		JobName:    cfg.Metrics.JobName,
		Tags:       tags,
		FlushEvery: cfg.Metrics.FlushEvery(),
	})
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = b.Close() }, nil
}

// serveHTTP runs the streamable HTTP transport until the context is
// cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *mcp.Server, cfg *config.Config, logger *zap.Logger) {
	httpSrv := srv.NewStreamableHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving on http", zap.String("addr", cfg.Addr()))
		errCh <- httpSrv.Start(cfg.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := httpSrv.Shutdown(context.Background()); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("http transport", zap.Error(err))
		}
	}
}
