package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/gorilla/websocket"
)

// Watch is an open websocket connection to the server's /ws endpoint.
// The server routes messages by client id, so a Watch opened before a
// prompt is queued sees every message for that prompt.
type Watch struct {
	conn *websocket.Conn
}

// NewWatch dials the server's websocket endpoint with this client's id.
// Close the watch when done with it.
func (c *Client) NewWatch(ctx context.Context) (*Watch, error) {
	u := url.URL{
		Scheme:   "ws",
		Host:     c.serverBaseAddress,
		Path:     "/ws",
		RawQuery: "clientId=" + c.clientid,
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &Watch{conn: conn}, nil
}

// Close tears down the websocket connection.  Closing also terminates a
// running Follow loop.
func (w *Watch) Close() error {
	return w.conn.Close()
}

// Follow reads status messages until the prompt with the given id
// finishes, fails, or is interrupted, translating them into
// PromptMessages.  The returned channel closes when the prompt stops or
// the context is cancelled.
func (w *Watch) Follow(ctx context.Context, promptID string) <-chan PromptMessage {
	msgs := make(chan PromptMessage)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			w.conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(msgs)
		defer close(done)
		for {
			stop := w.readOne(promptID, msgs)
			if stop {
				return
			}
		}
	}()

	return msgs
}

// readOne reads and dispatches a single websocket message.  It reports
// true when the followed prompt has stopped or the connection is gone.
func (w *Watch) readOne(promptID string, msgs chan<- PromptMessage) bool {
	_, raw, err := w.conn.ReadMessage()
	if err != nil {
		// connection closed or cancelled; channel close tells the consumer
		return true
	}

	message := &WSStatusMessage{}
	if err := json.Unmarshal(raw, message); err != nil {
		slog.Error("deserializing status message", "error", err)
		return false
	}

	switch message.Type {
	case "execution_start":
		s := message.Data.(*WSMessageDataExecutionStart)
		if s.PromptID == promptID {
			msgs <- PromptMessage{Type: "started", Message: &PromptMessageStarted{PromptID: s.PromptID}}
		}
	case "executing":
		s := message.Data.(*WSMessageDataExecuting)
		if s.PromptID != promptID {
			return false
		}
		if s.Node == nil {
			// final node was processed
			msgs <- PromptMessage{Type: "stopped", Message: &PromptMessageStopped{PromptID: promptID}}
			return true
		}
		msgs <- PromptMessage{Type: "executing", Message: &PromptMessageExecuting{NodeID: *s.Node}}
	case "progress":
		s := message.Data.(*WSMessageDataProgress)
		msgs <- PromptMessage{Type: "progress", Message: &PromptMessageProgress{Value: s.Value, Max: s.Max}}
	case "executed":
		s := message.Data.(*WSMessageDataExecuted)
		if s.PromptID == promptID {
			msgs <- PromptMessage{Type: "data", Message: &PromptMessageData{NodeID: s.Node, Data: s.Output}}
		}
	case "execution_interrupted":
		s := message.Data.(*WSMessageExecutionInterrupted)
		if s.PromptID == promptID {
			msgs <- PromptMessage{Type: "stopped", Message: &PromptMessageStopped{PromptID: promptID}}
			return true
		}
	case "execution_error":
		s := message.Data.(*WSMessageExecutionError)
		if s.PromptID == promptID {
			msgs <- PromptMessage{Type: "stopped", Message: &PromptMessageStopped{
				PromptID: promptID,
				Exception: &PromptExecutionError{
					NodeID:           s.Node,
					NodeType:         s.NodeType,
					ExceptionMessage: s.ExceptionMessage,
					ExceptionType:    s.ExceptionType,
					Traceback:        s.Traceback,
				},
			}}
			return true
		}
	case "status", "execution_cached", "crystools.monitor":
		// nothing for a single followed prompt
	default:
		slog.Debug("unhandled message type", "type", message.Type)
	}
	return false
}
