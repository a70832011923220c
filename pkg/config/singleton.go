package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current holds the process-wide configuration.
	current atomic.Pointer[Config]

	initMu   sync.Mutex
	initDone bool
)

// Initialize loads configuration from path (with environment overrides)
// and installs it as the process-wide configuration. Only the first
// successful call has an effect; a failed call may be retried.
func Initialize(path string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initDone {
		return nil
	}
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	current.Store(cfg)
	initDone = true
	return nil
}

// GetConfig returns the process-wide configuration, or nil before
// Initialize or SetConfig.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the process-wide configuration. Commands use it to
// install a configuration after applying flag overrides.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig reloads the configuration from path. The current
// configuration is kept when loading fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return nil
}

// MustGetConfig returns the process-wide configuration and panics if none
// is installed.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// reset clears the process-wide configuration. Used by tests.
func reset() {
	initMu.Lock()
	defer initMu.Unlock()
	current.Store(nil)
	initDone = false
}
