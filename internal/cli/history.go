package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var flagClear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the server's prompt history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flagClear {
				return errors.New("nothing to do: pass --clear to erase the history")
			}
			if err := newClient().EraseHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagClear, "clear", false, "Erase the prompt history")
	return cmd
}
