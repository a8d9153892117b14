package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getflowcheck/flowcheck/pkg/api"
	"github.com/getflowcheck/flowcheck/pkg/config"
	"github.com/getflowcheck/flowcheck/pkg/logging"
	"github.com/getflowcheck/flowcheck/pkg/ratelimit"
	"github.com/getflowcheck/flowcheck/pkg/store"
)

var serveFlags struct {
	configPath string
	host       string
	port       int
	logLevel   string
	logFormat  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flowcheck API server",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlags.configPath, "config", "c", "", "Path to YAML config file")
	f.StringVar(&serveFlags.host, "host", "", "Listen host (overrides config)")
	f.IntVarP(&serveFlags.port, "port", "p", 0, "Listen port (overrides config)")
	f.StringVar(&serveFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&serveFlags.logFormat, "log-format", "", "Log format: text, json")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if serveFlags.configPath != "" {
		loaded, err := config.Load(serveFlags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if serveFlags.host != "" {
		cfg.Server.Host = serveFlags.host
	}
	if serveFlags.port != 0 {
		cfg.Server.Port = serveFlags.port
	}
	if serveFlags.logLevel != "" {
		cfg.Log.Level = serveFlags.logLevel
	}
	if serveFlags.logFormat != "" {
		cfg.Log.Format = serveFlags.logFormat
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	var resolver api.OwnerResolver
	switch cfg.Auth.Mode {
	case config.AuthModeJWT:
		resolver = api.NewJWTResolver([]byte(cfg.Auth.JWTSecret))
	default:
		resolver = api.NewStaticTokenResolver(cfg.Auth.Tokens)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			Rate:           cfg.RateLimit.Rate,
			Burst:          cfg.RateLimit.Burst,
			TrustedProxies: cfg.RateLimit.TrustedProxies,
		})
		defer limiter.Stop()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := api.NewServer(addr, store.NewMemory(),
		api.WithLogger(log),
		api.WithOwnerResolver(resolver),
		api.WithRateLimiter(limiter),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
