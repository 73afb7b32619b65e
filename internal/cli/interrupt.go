package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInterruptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interrupt",
		Short: "Interrupt the prompt the server is executing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Interrupt(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Interrupted")
			return nil
		},
	}
}
