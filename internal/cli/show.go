package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sdharcourt/comfyrun/workflow"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var (
		flagWorkflow string
		flagDir      string
		flagFull     bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the prompts and model of a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workflow-dir") {
				flagDir = cfg.WorkflowDir
			}
			wf, err := loadWorkflow(flagDir, flagWorkflow)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if pos := wf.Prompt(workflow.TonePositive); pos != "" {
				fmt.Fprintf(out, "Positive prompt: %s\n", pos)
			}
			if neg := wf.Prompt(workflow.ToneNegative); neg != "" {
				fmt.Fprintf(out, "Negative prompt: %s\n", neg)
			}
			model, err := wf.ModelName()
			if err != nil && !errors.Is(err, workflow.ErrNodeNotFound) {
				return err
			}
			if model != "" {
				fmt.Fprintf(out, "Model: %s\n", model)
			}

			if flagFull {
				data, err := json.MarshalIndent(wf.Nodes(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagWorkflow, "workflow", "", "Name of the workflow JSON (or PNG) file")
	cmd.Flags().StringVar(&flagDir, "workflow-dir", ".", "Directory holding workflow files")
	cmd.Flags().BoolVar(&flagFull, "full", false, "Dump the full document")
	cmd.MarkFlagRequired("workflow")
	return cmd
}
