package client

import (
	"encoding/json"
	"log/slog"
)

// WSStatusMessage is one message from the ComfyUI websocket.  Data is
// decoded into the concrete type matching the message type.
type WSStatusMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (sm *WSStatusMessage) UnmarshalJSON(b []byte) error {
	// Unmarshal into an anonymous equivalent type to avoid infinite
	// recursion
	var temp struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &temp); err != nil {
		return err
	}

	sm.Type = temp.Type

	switch sm.Type {
	case "status":
		sm.Data = &WSMessageDataStatus{}
	case "execution_start":
		sm.Data = &WSMessageDataExecutionStart{}
	case "execution_cached":
		sm.Data = &WSMessageDataExecutionCached{}
	case "executing":
		sm.Data = &WSMessageDataExecuting{}
	case "progress":
		sm.Data = &WSMessageDataProgress{}
	case "executed":
		sm.Data = &WSMessageDataExecuted{}
	case "execution_interrupted":
		sm.Data = &WSMessageExecutionInterrupted{}
	case "execution_error":
		sm.Data = &WSMessageExecutionError{}
	default:
		sm.Data = nil
	}

	if sm.Data != nil && len(temp.Data) > 0 {
		if err := json.Unmarshal(temp.Data, sm.Data); err != nil {
			return err
		}
	}

	return nil
}

// {"type": "status", "data": {"status": {"exec_info": {"queue_remaining": 1}}}}
type WSMessageDataStatus struct {
	Status struct {
		ExecInfo struct {
			QueueRemaining int `json:"queue_remaining"`
		} `json:"exec_info"`
	} `json:"status"`
}

// {"type": "execution_start", "data": {"prompt_id": "ed986d60-..."}}
type WSMessageDataExecutionStart struct {
	PromptID string `json:"prompt_id"`
}

// {"type": "execution_cached", "data": {"nodes": [], "prompt_id": "ed986d60-..."}}
type WSMessageDataExecutionCached struct {
	Nodes    []any  `json:"nodes"`
	PromptID string `json:"prompt_id"`
}

// {"type": "executing", "data": {"node": "12", "prompt_id": "ed986d60-..."}}
// A null node signals that the final node of the prompt has finished.
type WSMessageDataExecuting struct {
	Node     *string `json:"node"`
	PromptID string  `json:"prompt_id"`
}

// {"type": "progress", "data": {"value": 1, "max": 20}}
type WSMessageDataProgress struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// {"type": "executed", "data": {"node": "19", "output": {"images":
// [{"filename": "ComfyUI_00046_.png", "subfolder": "", "type": "output"}]},
// "prompt_id": "ed986d60-..."}}
//
// Each node with outputs receives its own "executed" message.
type WSMessageDataExecuted struct {
	Node     string                  `json:"node"`
	Output   map[string][]DataOutput `json:"-"`
	PromptID string                  `json:"prompt_id"`
}

func (mde *WSMessageDataExecuted) UnmarshalJSON(b []byte) error {
	var temp struct {
		Node     string                       `json:"node"`
		Output   map[string][]json.RawMessage `json:"output"`
		PromptID string                       `json:"prompt_id"`
	}
	if err := json.Unmarshal(b, &temp); err != nil {
		return err
	}

	mde.Node = temp.Node
	mde.PromptID = temp.PromptID
	mde.Output = make(map[string][]DataOutput)

	// output entries are either file descriptors or raw strings
	for k, entries := range temp.Output {
		outputs := make([]DataOutput, 0, len(entries))
		for _, raw := range entries {
			var file DataOutput
			if err := json.Unmarshal(raw, &file); err == nil && file.Type != "" {
				outputs = append(outputs, file)
				continue
			}
			var text string
			if err := json.Unmarshal(raw, &text); err == nil {
				outputs = append(outputs, DataOutput{Type: "text", Text: text})
				continue
			}
			slog.Warn("unknown executed output entry", "node", temp.Node, "key", k)
		}
		mde.Output[k] = outputs
	}

	return nil
}

// {"type": "execution_interrupted", "data": {"prompt_id": "dc7093d7-...",
// "node_id": "19", "node_type": "SaveImage", "executed": ["5", "17"]}}
type WSMessageExecutionInterrupted struct {
	PromptID string   `json:"prompt_id"`
	Node     string   `json:"node_id"`
	NodeType string   `json:"node_type"`
	Executed []string `json:"executed"`
}

type WSMessageExecutionError struct {
	PromptID         string         `json:"prompt_id"`
	Node             string         `json:"node_id"`
	NodeType         string         `json:"node_type"`
	Executed         []string       `json:"executed"`
	ExceptionMessage string         `json:"exception_message"`
	ExceptionType    string         `json:"exception_type"`
	Traceback        []string       `json:"traceback"`
	CurrentInputs    map[string]any `json:"current_inputs"`
	CurrentOutputs   map[int]any    `json:"current_outputs"`
}
