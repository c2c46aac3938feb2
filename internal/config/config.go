package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Store    StoreConfig    `mapstructure:"store"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	EnableCORS bool   `mapstructure:"enable_cors"`

	// Debug enables the /debug endpoints (artificial slow handlers,
	// useful when trying the watchdog out).
	Debug bool `mapstructure:"debug"`
}

// WatchdogConfig configures the slow-request checker.
type WatchdogConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Period      string `mapstructure:"period"`
	Threshold   string `mapstructure:"threshold"`
	RepeatAfter string `mapstructure:"repeat_after"`
}

// PeriodDuration returns the parsed cycle period.
func (c WatchdogConfig) PeriodDuration() (time.Duration, error) {
	return time.ParseDuration(c.Period)
}

// ThresholdDuration returns the parsed slowness threshold.
func (c WatchdogConfig) ThresholdDuration() (time.Duration, error) {
	return time.ParseDuration(c.Threshold)
}

// RepeatAfterDuration returns the parsed repeat-capture interval.
func (c WatchdogConfig) RepeatAfterDuration() (time.Duration, error) {
	return time.ParseDuration(c.RepeatAfter)
}

// StoreConfig configures the capped record store.
type StoreConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxFiles int    `mapstructure:"max_files"`
}
