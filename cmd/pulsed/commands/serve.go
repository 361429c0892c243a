package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pulseobs/pulse/config"
	"github.com/pulseobs/pulse/logging/logger"
	"github.com/pulseobs/pulse/monitor"
	"github.com/pulseobs/pulse/observes"
	"github.com/pulseobs/pulse/version"
	"github.com/pulseobs/pulse/web"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the observability daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	cleanupLogger, err := logger.Init(cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanupLogger()
	logger.SetVersion(version.Version)

	cleanupSentry, err := observes.InitSentry(cfg.AppName, cfg.Sentry)
	if err != nil {
		return err
	}
	defer cleanupSentry()

	ctx := context.Background()

	m := monitor.New(cfg)
	if cfg.Sentry != nil && cfg.Sentry.Dsn != "" {
		m.AddNotifier(observes.AlertNotifier())
	}
	m.Start()
	defer m.Stop()

	cfg.Watch(func(next *config.Config) {
		logger.Info(ctx, "configuration file changed; restart to apply collector settings")
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), web.Middleware(m))
	web.RegisterRoutes(router, m)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-quit:
		logger.Infof(ctx, "received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}
