// Command sdispatch serves the routes and middlewares described by a configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Suhaibinator/SDispatch/pkg/config"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"github.com/Suhaibinator/SDispatch/pkg/middleware"
	"github.com/Suhaibinator/SDispatch/pkg/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file (default ./sdispatch.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger exists before the configuration is loaded
		os.Stderr.WriteString("sdispatch: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging, cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("sdispatch: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run builds the dispatcher from cfg and serves until SIGINT or SIGTERM.
func run(cfg *config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var monitor *metrics.Monitor
	if cfg.Metrics.Enabled {
		var err error
		monitor, err = metrics.NewMonitor(metrics.MonitorConfig{
			Registerer: registry,
			Namespace:  cfg.Metrics.Namespace,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
	}

	// The routes handler lists the table of the router built below
	var r *router.Router
	paths := func() []string { return r.Routes() }

	reg := config.NewRegistry()
	if err := config.RegisterBuiltins(reg, config.Dependencies{
		Logger:        logger,
		ThrottleStore: middleware.NewMemoryStore(),
	}); err != nil {
		return err
	}
	if err := registerHandlers(reg, paths); err != nil {
		return err
	}

	routerConfig, err := config.BuildRouterConfig(cfg, reg, logger, monitor)
	if err != nil {
		return err
	}
	r, err = router.NewRouter(routerConfig)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	var admin *http.Server
	if cfg.Server.AdminAddress != "" {
		admin = &http.Server{
			Addr:    cfg.Server.AdminAddress,
			Handler: newAdminHandler(registry, paths, logger),
		}
	}

	errCh := make(chan error, 2)
	serve := func(name string, s *http.Server) {
		logger.Info("Server listening", zap.String("server", name), zap.String("address", s.Addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}
	go serve("public", srv)
	if admin != nil {
		go serve("admin", admin)
	}

	// Channel to listen for interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop dispatching first so in-flight requests finish before the listeners close
	if err := r.Shutdown(ctx); err != nil {
		logger.Warn("Router shutdown incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Public server shutdown incomplete", zap.Error(err))
	}
	if admin != nil {
		if err := admin.Shutdown(ctx); err != nil {
			logger.Warn("Admin server shutdown incomplete", zap.Error(err))
		}
	}
	logger.Info("Server stopped")
	return nil
}
