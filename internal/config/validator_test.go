package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "auto"},
		Server: ServerConfig{Host: "localhost", Port: 8080, EnableCORS: true},
		Watchdog: WatchdogConfig{
			Enabled:     true,
			Period:      "3s",
			Threshold:   "10s",
			RepeatAfter: "15s",
		},
		Store: StoreConfig{Dir: ".slowwatch/slow-requests", MaxFiles: 50},
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateConfig(validConfig()))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Server.Port = 0
	cfg.Watchdog.Period = "sometimes"
	cfg.Store.MaxFiles = -1

	err := ValidateConfig(cfg)
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, verrs, 4)
}

func TestValidate_Watchdog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad period", func(c *Config) { c.Watchdog.Period = "fast" }, "watchdog.period"},
		{"negative threshold", func(c *Config) { c.Watchdog.Threshold = "-5s" }, "watchdog.threshold"},
		{"zero repeat", func(c *Config) { c.Watchdog.RepeatAfter = "0s" }, "watchdog.repeat_after"},
		{"threshold below period", func(c *Config) { c.Watchdog.Period = "30s"; c.Watchdog.Threshold = "10s" }, "watchdog.threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr),
				"error %q should mention %s", err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Server(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Server.Host = ""
	cfg.Server.Port = 70000

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.host")
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate_Store(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Store.Dir = ""

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dir")
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	e := ValidationError{Field: "store.max_files", Value: 0, Message: "must be positive"}
	assert.Equal(t, "store.max_files: must be positive (have 0)", e.Error())
}
