package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ComfyUI server system and device stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := newClient().SystemStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "OS: %s\n", stats.System.OS)
			fmt.Fprintf(out, "Python: %s\n", stats.System.PythonVersion)
			for _, gpu := range stats.Devices {
				fmt.Fprintf(out, "Device %d: %s (%s), VRAM %s free of %s\n",
					gpu.Index, gpu.Name, gpu.Type,
					humanize.IBytes(uint64(gpu.VRAMFree)),
					humanize.IBytes(uint64(gpu.VRAMTotal)))
			}
			return nil
		},
	}
}
