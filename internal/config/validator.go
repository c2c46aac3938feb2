package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError describes one rejected configuration value.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (have %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is every rejection found in one validation pass. The
// whole config is checked before reporting, so an operator fixes one
// round of problems, not one problem per round.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validator accumulates rejections across the config sections.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks every section and returns the collected rejections,
// or nil when the config is usable.
func (v *Validator) Validate(cfg *Config) error {
	v.checkLog(&cfg.Log)
	v.checkServer(&cfg.Server)
	v.checkWatchdog(&cfg.Watchdog)
	v.checkStore(&cfg.Store)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the rejections collected so far.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) reject(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) checkLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.reject("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.reject("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" && !parentReachable(cfg.File) {
		v.reject("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) checkServer(cfg *ServerConfig) {
	if cfg.Host == "" {
		v.reject("server.host", cfg.Host, "host required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.reject("server.port", cfg.Port, "must be between 1 and 65535")
	}
}

func (v *Validator) checkWatchdog(cfg *WatchdogConfig) {
	period := v.checkDuration("watchdog.period", cfg.Period)
	threshold := v.checkDuration("watchdog.threshold", cfg.Threshold)
	v.checkDuration("watchdog.repeat_after", cfg.RepeatAfter)

	// The runtime floors the threshold at twice the period anyway; a
	// threshold below the period is rejected outright because the
	// operator's numbers cannot mean what they wrote.
	if period > 0 && threshold > 0 && threshold < period {
		v.reject("watchdog.threshold", cfg.Threshold, "must be at least watchdog.period")
	}
}

func (v *Validator) checkDuration(field, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		v.reject(field, value, "invalid duration format")
		return 0
	}
	if d <= 0 {
		v.reject(field, value, "must be positive")
		return 0
	}
	return d
}

func (v *Validator) checkStore(cfg *StoreConfig) {
	if cfg.Dir == "" {
		v.reject("store.dir", cfg.Dir, "directory required")
	} else if !parentReachable(cfg.Dir) {
		v.reject("store.dir", cfg.Dir, "invalid directory path")
	}

	if cfg.MaxFiles <= 0 {
		v.reject("store.max_files", cfg.MaxFiles, "must be positive")
	}
}

// parentReachable accepts a path whose parent either exists or could be
// created; only a stat error other than not-exist rejects it.
func parentReachable(path string) bool {
	_, err := os.Stat(filepath.Dir(path))
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig runs a full validation pass over cfg.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
