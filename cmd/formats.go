package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-carve/internal/types"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported format catalog",
	Run: func(cmd *cobra.Command, args []string) {
		listFormats()
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func listFormats() {
	fmt.Printf("%-6s %-7s %-10s %-10s %-12s %s\n", "NAME", "EXT", "MIN", "MAX", "END", "DEFAULT")
	for f := 0; f < types.FormatCount; f++ {
		d := types.Catalog[f]

		end := "inferred"
		switch {
		case d.Kind == types.ExtractorMP3:
			end = "frame walk"
		case d.Kind == types.ExtractorMP4:
			end = "box walk"
		case d.HasEndMarker():
			end = "marker"
		}

		def := ""
		if f < types.PrimaryFormatCount {
			def = "yes"
		}

		fmt.Printf("%-6s %-7s %-10s %-10s %-12s %s\n",
			d.Name, d.Extension, formatSize(d.MinSize), formatSize(d.MaxSize), end, def)
	}
}

func formatSize(size int64) string {
	switch {
	case size >= types.MiB:
		return fmt.Sprintf("%d MiB", size/types.MiB)
	case size >= types.KiB:
		return fmt.Sprintf("%d KiB", size/types.KiB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
