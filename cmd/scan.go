package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-carve/internal/device"
	"github.com/deploymenttheory/go-carve/internal/services"
	"github.com/deploymenttheory/go-carve/internal/types"
)

var (
	// Output and format selection (scan-specific)
	scanOut     string
	scanFormats []string
)

var scanCmd = &cobra.Command{
	Use:   "scan [device-path]",
	Short: "Scan a device and carve recoverable files",
	Long: `Scan a raw block device or disk image and carve recoverable files into
the output directory. One subdirectory per format is created on demand.

Examples:
  # Carve the default formats from a device
  go-carve scan /dev/sdb --out ./recovered

  # Restrict carving to images
  go-carve scan disk.img --out ./recovered --formats png,jpeg

  # Also carve MP4, one of the catalogued secondary formats
  go-carve scan disk.img --out ./recovered --formats png,jpeg,pdf,zip,mp3,mp4`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runScan(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "output directory for recovered files (required)")
	scanCmd.Flags().StringSliceVarP(&scanFormats, "formats", "f", nil, "formats to carve (default: png,jpeg,pdf,zip,mp3)")
	scanCmd.MarkFlagRequired("out")
}

func runScan(devicePath string) error {
	config, err := device.LoadCarveConfig()
	if err != nil {
		return err
	}

	enabled, err := enabledMask(scanFormats)
	if err != nil {
		return err
	}

	engine := services.NewCarveEngineWithConfig(devicePath, scanOut, enabled, config)

	// SIGINT maps onto the engine's cancel hook; the scan stops at the
	// next chunk boundary.
	var cancelled atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancelled.Store(true)
	}()

	logFn := func(message string) {
		if !quiet {
			fmt.Println(message)
		}
	}
	progressFn := func(percent int) {
		if verbose && !quiet {
			fmt.Printf("Scanning: %d%%\n", percent)
		}
	}
	cancelFn := func() bool {
		return cancelled.Load()
	}

	if !engine.Run(logFn, progressFn, cancelFn) {
		return fmt.Errorf("carving did not complete")
	}
	return nil
}

// enabledMask turns the --formats selection into the catalog mask. An
// empty selection enables the principal five formats.
func enabledMask(names []string) ([]bool, error) {
	enabled := make([]bool, types.FormatCount)
	if len(names) == 0 {
		for f := 0; f < types.PrimaryFormatCount; f++ {
			enabled[f] = true
		}
		return enabled, nil
	}
	for _, name := range names {
		idx := types.FormatIndexByName(strings.TrimSpace(name))
		if idx < 0 {
			return nil, fmt.Errorf("unknown format: %s", name)
		}
		enabled[idx] = true
	}
	return enabled, nil
}
