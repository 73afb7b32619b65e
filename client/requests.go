package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sdharcourt/comfyrun/workflow"
)

/*
The subset of the ComfyUI routes this client speaks:

@routes.get("/system_stats")
@routes.get("/prompt")

@routes.post("/prompt")
@routes.post("/interrupt")
@routes.post("/history")
*/

// promptRequest is the body of POST /prompt.
type promptRequest struct {
	Prompt   map[string]*workflow.Node `json:"prompt"`
	ClientID string                    `json:"client_id"`
}

// QueuePrompt validates the workflow and submits it for execution.
// The returned QueueItem carries the prompt id the server assigned;
// per-node validation failures reported by the server surface in its
// NodeErrors field.
func (c *Client) QueuePrompt(ctx context.Context, wf *workflow.Workflow) (*QueueItem, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	body, status, err := c.postJSON(ctx, "/prompt", promptRequest{
		Prompt:   wf.Nodes(),
		ClientID: c.clientid,
	})
	if err != nil {
		return nil, err
	}

	item := &QueueItem{}
	if jerr := json.Unmarshal(body, item); jerr != nil || item.PromptID == "" {
		// the server rejected the prompt; the body should be the
		// ComfyUI error envelope:
		// {"error": {"type": "prompt_no_outputs",
		//            "message": "Prompt has no outputs", ...},
		//  "node_errors": {}}
		perror := &PromptErrorMessage{}
		if perr := json.Unmarshal(body, perror); perr == nil && perror.Error.Message != "" {
			return nil, errors.New(perror.Error.Message)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("POST /prompt: unexpected status %d", status)
		}
		return nil, fmt.Errorf("POST /prompt: unexpected response %q", string(body))
	}
	return item, nil
}

// SystemStats retrieves OS and device information from the server.
func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	retv := &SystemStats{}
	if err := c.getJSON(ctx, "/system_stats", retv); err != nil {
		return nil, err
	}
	return retv, nil
}

// QueueExecInfo retrieves the number of prompts waiting in the server
// queue.
func (c *Client) QueueExecInfo(ctx context.Context) (*QueueExecInfo, error) {
	retv := &QueueExecInfo{}
	if err := c.getJSON(ctx, "/prompt", retv); err != nil {
		return nil, err
	}
	return retv, nil
}

// Interrupt stops the prompt the server is currently executing.
func (c *Client) Interrupt(ctx context.Context) error {
	_, status, err := c.postJSON(ctx, "/interrupt", struct{}{})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("POST /interrupt: unexpected status %d", status)
	}
	return nil
}

// EraseHistory clears the server's prompt history.
func (c *Client) EraseHistory(ctx context.Context) error {
	_, status, err := c.postJSON(ctx, "/history", map[string]bool{"clear": true})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("POST /history: unexpected status %d", status)
	}
	return nil
}
