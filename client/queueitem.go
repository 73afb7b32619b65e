package client

// QueueItem is the server's response to a queued prompt.
type QueueItem struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}
