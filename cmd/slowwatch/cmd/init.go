package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Write a commented default configuration to .slowwatch/config.yaml in
the current directory. The file is written atomically; an existing file
is only replaced with --force.`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite an existing config file")
}

// defaultConfigFile mirrors the loader defaults so a freshly written
// file and no file at all behave identically.
type defaultConfigFile struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Server struct {
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		EnableCORS bool   `yaml:"enable_cors"`
		Debug      bool   `yaml:"debug"`
	} `yaml:"server"`
	Watchdog struct {
		Enabled     bool   `yaml:"enabled"`
		Period      string `yaml:"period"`
		Threshold   string `yaml:"threshold"`
		RepeatAfter string `yaml:"repeat_after"`
	} `yaml:"watchdog"`
	Store struct {
		Dir      string `yaml:"dir"`
		MaxFiles int    `yaml:"max_files"`
	} `yaml:"store"`
}

func runInit(_ *cobra.Command, _ []string) error {
	path := filepath.Join(".slowwatch", "config.yaml")

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Printf("%s already exists (use --force to overwrite)\n", path)
		return nil
	}

	var cfg defaultConfigFile
	cfg.Log.Level = "info"
	cfg.Log.Format = "auto"
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.Server.EnableCORS = true
	cfg.Server.Debug = false
	cfg.Watchdog.Enabled = true
	cfg.Watchdog.Period = "3s"
	cfg.Watchdog.Threshold = "10s"
	cfg.Watchdog.RepeatAfter = "15s"
	cfg.Store.Dir = filepath.Join(".slowwatch", "slow-requests")
	cfg.Store.MaxFiles = 50

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	header := []byte("# slowwatch configuration\n# The watchdog section can be edited while serve is running;\n# changes to watchdog.enabled take effect without a restart.\n")
	if err := config.AtomicWrite(path, append(header, data...)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
