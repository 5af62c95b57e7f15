// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/config"
	"github.com/movex/movex/internal/httpapi"
	"github.com/movex/movex/internal/logging"
	"github.com/movex/movex/internal/observability"
)

const defaultShutdownTimeout = 10 * time.Second

// serveFlagKeys maps serve flags onto config keys.
var serveFlagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "server.metrics_addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"storage":      "storage.driver",
	"revocation":   "revocation.driver",
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account API",
		Long: `Start the HTTP API that registers, signs in and authenticates riders
and captains. Metrics and health probes are served on a separate address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("addr", defaults.Server.Addr, "API listen address")
	cmd.Flags().String("metrics-addr", defaults.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().String("storage", defaults.Storage.Driver, "account storage (postgres, mongo or memory)")
	cmd.Flags().String("revocation", defaults.Revocation.Driver, "revocation list (store or redis)")

	return cmd
}

// runServeWithDeps runs the API until a signal arrives, ctx is cancelled or
// a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logger, err := logging.SetDefault(logging.Options{
		Service: "movex",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  deps.LogWriter,
	})
	if err != nil {
		return err
	}

	logger.Info("starting movex",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Driver,
		"revocation", cfg.Revocation.Driver,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").With("driver", cfg.Storage.Driver).Wrap(err)
	}
	defer backend.Close()

	service, err := newAuthService(cfg, backend, logger)
	if err != nil {
		return err
	}

	var worker *auth.PruneWorker
	if backend.Pruner != nil {
		worker, err = auth.NewPruneWorker(backend.Pruner, cfg.Auth.PruneInterval.Std(), logger)
		if err != nil {
			return err
		}
	}

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Server.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Server.MetricsAddr, backend.Ready)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Server.MetricsAddr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	api, err := httpapi.New(service, httpapi.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.Server.SecureCookies,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	httpServer := httpapi.NewHTTPServer(cfg.Server.Addr, api.Handler())

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	if worker != nil {
		worker.OnPrune(metrics.RecordPruned)
		worker.Start(ctx)
		defer worker.Stop()
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Printf("MoveX API listening on %s\n", listener.Addr())
	logger.Info("movex ready", "addr", listener.Addr().String())
	if deps.Ready != nil {
		deps.Ready(listener.Addr().String())
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		logger.Error("API server error", "error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	timeout := cfg.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error closing sockets", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	}
	return nil
}

func newAuthService(cfg *config.Config, backend *Backend, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewBcryptHasherWithCost(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewJWTIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	return auth.NewServiceWithLogger(backend.Users, backend.Revocations, hasher, issuer, logger)
}

func stopObservability(server ObservabilityServer, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
