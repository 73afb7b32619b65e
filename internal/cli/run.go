package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sdharcourt/comfyrun/client"
	"github.com/sdharcourt/comfyrun/workflow"
	"github.com/spf13/cobra"
)

// loadWorkflow loads a workflow by name from dir; a .png name pulls the
// embedded API-format prompt out of a generated image.
func loadWorkflow(dir string, name string) (*workflow.Workflow, error) {
	if strings.EqualFold(filepath.Ext(name), ".png") {
		return workflow.LoadPNG(dir, name)
	}
	return workflow.Load(dir, name)
}

func newRunCmd() *cobra.Command {
	var (
		flagWorkflow  string
		flagDir       string
		flagPrompt    string
		flagNegPrompt string
		flagSteps     int
		flagSeed      int64
		flagSave      string
		flagWait      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Queue a workflow on the ComfyUI server",
		Long: "Load a workflow, apply any overrides, optionally save the modified copy,\n" +
			"and queue it for execution.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("workflow-dir") {
				flagDir = cfg.WorkflowDir
			}

			wf, err := loadWorkflow(flagDir, flagWorkflow)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("prompt") {
				if err := wf.SetPositivePrompt(flagPrompt); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("neg-prompt") {
				if err := wf.SetNegativePrompt(flagNegPrompt); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("steps") {
				n := wf.SetSteps(flagSteps)
				logger.Debug("updated steps", "nodes", n, "steps", flagSteps)
			}
			if cmd.Flags().Changed("seed") {
				n := wf.SetSeed(flagSeed)
				logger.Debug("updated seed", "nodes", n)
			}

			if flagSave != "" {
				if err := wf.Save(flagSave); err != nil {
					return fmt.Errorf("save workflow: %w", err)
				}
				logger.Info("saved workflow", "name", flagSave)
			}

			c := newClient()

			var watch *client.Watch
			if flagWait {
				// connect before queueing so no early messages are missed
				watch, err = c.NewWatch(ctx)
				if err != nil {
					return fmt.Errorf("connect to server websocket: %w", err)
				}
				defer watch.Close()
			}

			item, err := c.QueuePrompt(ctx, wf)
			if err != nil {
				return fmt.Errorf("queue prompt: %w", err)
			}
			if len(item.NodeErrors) > 0 {
				logger.Warn("server reported node errors", "nodes", len(item.NodeErrors))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued prompt %s (number %d)\n", item.PromptID, item.Number)

			if !flagWait {
				return nil
			}
			return followPrompt(cmd, watch, wf, item.PromptID)
		},
	}

	cmd.Flags().StringVar(&flagWorkflow, "workflow", "", "Name of the workflow JSON (or PNG) file")
	cmd.Flags().StringVar(&flagDir, "workflow-dir", ".", "Directory holding workflow files")
	cmd.Flags().StringVar(&flagPrompt, "prompt", "", "Override positive prompt text")
	cmd.Flags().StringVar(&flagNegPrompt, "neg-prompt", "", "Override negative prompt text")
	cmd.Flags().IntVar(&flagSteps, "steps", 0, "Override number of sampling steps")
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "Override seed (-1 for random)")
	cmd.Flags().StringVar(&flagSave, "save", "", "Save the modified workflow under this name")
	cmd.Flags().BoolVar(&flagWait, "wait", false, "Wait for execution and show progress")
	cmd.MarkFlagRequired("workflow")
	return cmd
}

// followPrompt consumes watch messages until the prompt stops,
// rendering per-node progress.
func followPrompt(cmd *cobra.Command, watch *client.Watch, wf *workflow.Workflow, promptID string) error {
	var bar *progressbar.ProgressBar
	var currentTitle string

	for msg := range watch.Follow(cmd.Context(), promptID) {
		switch msg.Type {
		case "started":
			logger.Info("prompt started", "prompt_id", promptID)
		case "executing":
			bar = nil
			qm := msg.ToPromptMessageExecuting()
			currentTitle = wf.NodeTitle(qm.NodeID)
			logger.Debug("executing node", "node", qm.NodeID, "title", currentTitle)
		case "progress":
			qm := msg.ToPromptMessageProgress()
			if bar == nil {
				bar = progressbar.Default(int64(qm.Max), currentTitle)
			}
			bar.Set(qm.Value)
		case "data":
			qm := msg.ToPromptMessageData()
			for _, outputs := range qm.Data {
				for _, out := range outputs {
					if out.Filename != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", filepath.Join(out.Subfolder, out.Filename))
					}
				}
			}
		case "stopped":
			qm := msg.ToPromptMessageStopped()
			if qm.Exception != nil {
				return qm.Exception
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Done")
		}
	}
	return nil
}
