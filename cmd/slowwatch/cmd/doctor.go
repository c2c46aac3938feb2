package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and environment",
	Long:  "Verify that the configuration is valid and the record store is writable, and print a host summary.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	allOk := true

	fmt.Println("Validating configuration...")
	fmt.Println()

	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Printf("  ✗ cannot load config: %v\n", err)
		return fmt.Errorf("doctor check failed")
	}

	if err := config.ValidateConfig(cfg); err != nil {
		if verrs, ok := err.(config.ValidationErrors); ok {
			for _, verr := range verrs {
				fmt.Printf("  ✗ %s\n", verr.Error())
			}
		} else {
			fmt.Printf("  ✗ %s\n", err.Error())
		}
		allOk = false
	} else {
		if path := loader.ConfigFile(); path != "" {
			fmt.Printf("  ✓ configuration valid (%s)\n", path)
		} else {
			fmt.Println("  ✓ configuration valid (defaults, no config file)")
		}
	}

	fmt.Println()
	fmt.Println("Checking record store...")
	fmt.Println()

	if err := checkStoreWritable(cfg.Store.Dir); err != nil {
		fmt.Printf("  ✗ store dir %s not writable: %v\n", cfg.Store.Dir, err)
		allOk = false
	} else {
		fmt.Printf("  ✓ store dir %s writable (capacity %d files)\n", cfg.Store.Dir, cfg.Store.MaxFiles)
	}

	fmt.Println()
	fmt.Println("Host summary...")
	fmt.Println()
	printHostSummary(cfg.Store.Dir)

	if !allOk {
		fmt.Println()
		fmt.Println("Configuration errors must be fixed before running the watchdog.")
		return fmt.Errorf("doctor check failed")
	}

	fmt.Println()
	fmt.Println("All checks passed")
	return nil
}

// checkStoreWritable creates the store directory if needed and probes it
// with a throwaway file.
func checkStoreWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return err
	}
	return os.Remove(probe)
}

// printHostSummary reports load, memory, and disk pressure. A loaded
// host is the most common reason requests go slow in the first place.
func printHostSummary(storeDir string) {
	if info, err := host.Info(); err == nil {
		fmt.Printf("  os:       %s %s (%s)\n", info.Platform, info.PlatformVersion, info.KernelArch)
		fmt.Printf("  uptime:   %ds\n", info.Uptime)
	}
	if avg, err := load.Avg(); err == nil {
		fmt.Printf("  load:     %.2f / %.2f / %.2f\n", avg.Load1, avg.Load5, avg.Load15)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("  memory:   %.1f%% used (%d MB of %d MB)\n",
			vm.UsedPercent, vm.Used>>20, vm.Total>>20)
	}
	if usage, err := disk.Usage(storeDirOrCwd(storeDir)); err == nil {
		fmt.Printf("  disk:     %.1f%% used on store volume\n", usage.UsedPercent)
	}
}

func storeDirOrCwd(dir string) string {
	if _, err := os.Stat(dir); err == nil {
		return dir
	}
	return "."
}
