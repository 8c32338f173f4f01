package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Manager serves config snapshots and reloads the file on change.
// Consumers of hot-tunable values call GetConfig per use instead of
// caching the snapshot.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	onReload func(*Config)
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

func NewManager() (*Manager, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Manager{config: config}, nil
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnReload registers a callback invoked after each successful reload,
// with the new config. Register before StartWatching.
func (m *Manager) OnReload(fn func(*Config)) {
	m.onReload = fn
}

func (m *Manager) StartWatching(ctx context.Context) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}

	m.wg.Add(1)
	go m.watchLoop(ctx, configPath)

	log.Info().Str("path", configPath).Msg("watching config for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context, configPath string) {
	defer m.wg.Done()
	configFileName := filepath.Base(configPath)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Info().Str("path", event.Name).Msg("config change detected, reloading")
				m.reloadConfig(configPath)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reloadConfig(configPath string) {
	newConfig, err := LoadFrom(configPath)
	if err != nil {
		log.Warn().Err(err).Msg("config reload failed, keeping previous config")
		return
	}
	if err := newConfig.Validate(); err != nil {
		log.Warn().Err(err).Msg("invalid config after reload, keeping previous config")
		return
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	if m.onReload != nil {
		m.onReload(newConfig)
	}

	log.Info().Msg("configuration reloaded")
}
