package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show how many prompts are waiting on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := newClient().QueueExecInfo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queue remaining: %d\n", info.ExecInfo.QueueRemaining)
			return nil
		},
	}
}
