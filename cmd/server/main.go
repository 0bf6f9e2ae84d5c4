package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/platformbuilds/datadog-badges/internal/api"
	"github.com/platformbuilds/datadog-badges/internal/badge"
	"github.com/platformbuilds/datadog-badges/internal/config"
	"github.com/platformbuilds/datadog-badges/internal/services"
	"github.com/platformbuilds/datadog-badges/internal/tracing"
	"github.com/platformbuilds/datadog-badges/pkg/cache"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// set by -ldflags "-X main.version=..."
var version = "dev"

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("datadog-badges", pflag.ContinueOnError)
	flags.BoolP("help", "h", false, "print this help menu and exit")
	flags.BoolP("version", "V", false, "print the version and exit")
	flags.String("host", "0.0.0.0", "the host name to bind to")
	flags.Int("port", 8080, "the port to bind to")
	flags.String("context-root", "/", "the context root to serve from")
	flags.Bool("always-ok", false, "always return images with status code HTTP/200")
	flags.String("config", "", "path to a YAML config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error, fatal)")
	return flags
}

func main() {
	flags := newFlagSet()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if help, _ := flags.GetBool("help"); help {
		fmt.Printf("Usage: %s [options]\n\n%s\n", os.Args[0], flags.FlagUsages())
		return
	}
	if v, _ := flags.GetBool("version"); v {
		fmt.Println(version)
		return
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting datadog-badges", "version", version, "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing is optional; the global no-op provider is used otherwise
	var tp *tracing.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.NewTracerProvider(ctx, cfg.Tracing.ServiceName, version, cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
		if err != nil {
			log.Warn("Tracing disabled: failed to create tracer provider", "error", err)
		} else {
			log.Info("Tracing enabled", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	badgeCache, err := newBadgeCache(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize badge cache", "error", err)
	}

	renderer, err := badge.NewRenderer()
	if err != nil {
		log.Fatal("Failed to initialize badge renderer", "error", err)
	}

	credentials := config.NewCredentialStore(cfg.Accounts)
	tracer := tracing.NewBadgeTracer()
	datadog := services.NewDatadogService(cfg.Datadog, tracer, log)
	badges := services.NewBadgeService(badgeCache, credentials, datadog, tracer, log, cfg.AlwaysOK)

	// Live reload of log level and config-file accounts
	if file := config.ConfigFileUsed(configPath); file != "" {
		watcher := config.NewConfigWatcher(file, cfg, func() (*config.Config, error) {
			return config.Load(file, flags)
		}, log)
		if setter, ok := log.(logger.LevelSetter); ok {
			watcher.RegisterWatcher(config.LogLevelWatcher(setter, log))
		}
		watcher.RegisterWatcher(config.CredentialsWatcher(credentials))
		go func() {
			if err := watcher.Start(ctx); err != nil {
				log.Warn("Configuration watcher disabled", "error", err)
			}
		}()
	}

	server := api.NewServer(cfg, log, badges, renderer, version)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatal("Server failed", "error", err)
	}

	if err := badgeCache.Close(); err != nil {
		log.Warn("Failed to close badge cache", "error", err)
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", "error", err)
	}

	log.Info("datadog-badges shutdown complete")
}

func newBadgeCache(cfg *config.Config, log logger.Logger) (cache.BadgeCache, error) {
	ttl := cfg.CacheTTL()
	valkeyOpts := cache.ValkeyOptions{
		Nodes:    cfg.Cache.Nodes,
		DB:       cfg.Cache.DB,
		Password: cfg.Cache.Password,
		TTL:      ttl,
	}

	switch cfg.Cache.Backend {
	case "valkey":
		c, err := cache.NewValkeyCache(valkeyOpts, log)
		if err != nil {
			return nil, err
		}
		log.Info("Valkey badge cache initialized", "nodes", len(cfg.Cache.Nodes), "ttl", ttl)
		return c, nil
	case "auto":
		c, err := cache.NewValkeyCache(valkeyOpts, log)
		if err == nil {
			log.Info("Valkey badge cache initialized", "nodes", len(cfg.Cache.Nodes), "ttl", ttl)
			return c, nil
		}
		log.Warn("Valkey unavailable; using in-memory badge cache until it connects", "error", err)
		return cache.NewAutoSwapValkey(valkeyOpts, log, cache.NewMemoryCache(ttl, log)), nil
	default:
		log.Info("In-memory badge cache initialized", "ttl", ttl)
		return cache.NewMemoryCache(ttl, log), nil
	}
}
