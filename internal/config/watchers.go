package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// ConfigWatcher reloads the config file when it changes and hands the new
// configuration to registered callbacks. Settings that need a restart
// (listen address, cache backend) are only picked up by callbacks that
// choose to apply them.
type ConfigWatcher struct {
	config     *Config
	configPath string
	load       func() (*Config, error)
	logger     logger.Logger
	mu         sync.RWMutex
	watchers   []func(*Config)
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewConfigWatcher watches configPath. load produces a fresh Config and
// normally closes over Load with the same path and flags.
func NewConfigWatcher(configPath string, initial *Config, load func() (*Config, error), log logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		config:     initial,
		configPath: configPath,
		load:       load,
		logger:     log,
		watchers:   make([]func(*Config), 0),
		stopCh:     make(chan struct{}),
	}
}

// Start watches until ctx is done or Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and ConfigMap mounts replace the file
	// rather than writing it in place.
	dir := filepath.Dir(w.configPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	target := filepath.Clean(w.configPath)

	w.logger.Info("Configuration watcher started", "configPath", w.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Info("Configuration file changed, reloading", "file", event.Name)
			if err := w.reloadConfig(); err != nil {
				w.logger.Error("Failed to reload configuration", "error", err)
				continue
			}
			w.notifyWatchers()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Configuration watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Info("Configuration watcher stopping")
			return nil

		case <-w.stopCh:
			w.logger.Info("Configuration watcher stopped")
			return nil
		}
	}
}

// RegisterWatcher adds a callback for configuration changes.
func (w *ConfigWatcher) RegisterWatcher(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, callback)
}

// GetConfig returns the current configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *ConfigWatcher) reloadConfig() error {
	newConfig, err := w.load()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.config = newConfig
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded successfully")
	return nil
}

func (w *ConfigWatcher) notifyWatchers() {
	w.mu.RLock()
	config := w.config
	watchers := make([]func(*Config), len(w.watchers))
	copy(watchers, w.watchers)
	w.mu.RUnlock()

	for _, cb := range watchers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Configuration watcher callback panicked", "panic", r)
				}
			}()
			cb(config)
		}()
	}
}

// LogLevelWatcher returns a callback that applies a changed log_level.
func LogLevelWatcher(setter logger.LevelSetter, log logger.Logger) func(*Config) {
	return func(c *Config) {
		if err := setter.SetLevel(c.LogLevel); err != nil {
			log.Warn("Ignoring invalid log level from reloaded config", "level", c.LogLevel, "error", err)
			return
		}
		log.Info("Log level updated", "level", c.LogLevel)
	}
}

// CredentialsWatcher returns a callback that refreshes config-file accounts.
func CredentialsWatcher(store *CredentialStore) func(*Config) {
	return func(c *Config) { store.Update(c.Accounts) }
}
