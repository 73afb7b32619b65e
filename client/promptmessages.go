package client

// PromptMessage is one event in the life of a watched prompt.  Type is
// one of: started, executing, progress, data, stopped.  Message holds
// the matching PromptMessage* payload.
type PromptMessage struct {
	Type    string
	Message any
}

type PromptMessageStarted struct {
	PromptID string
}

func (p *PromptMessage) ToPromptMessageStarted() *PromptMessageStarted {
	return p.Message.(*PromptMessageStarted)
}

type PromptMessageExecuting struct {
	NodeID string
}

func (p *PromptMessage) ToPromptMessageExecuting() *PromptMessageExecuting {
	return p.Message.(*PromptMessageExecuting)
}

type PromptMessageProgress struct {
	Value int
	Max   int
}

func (p *PromptMessage) ToPromptMessageProgress() *PromptMessageProgress {
	return p.Message.(*PromptMessageProgress)
}

type PromptMessageData struct {
	NodeID string
	Data   map[string][]DataOutput
}

func (p *PromptMessage) ToPromptMessageData() *PromptMessageData {
	return p.Message.(*PromptMessageData)
}

type PromptMessageStopped struct {
	PromptID  string
	Exception *PromptExecutionError
}

func (p *PromptMessage) ToPromptMessageStopped() *PromptMessageStopped {
	return p.Message.(*PromptMessageStopped)
}

// PromptExecutionError describes a node failure reported by the server.
type PromptExecutionError struct {
	NodeID           string
	NodeType         string
	ExceptionMessage string
	ExceptionType    string
	Traceback        []string
}

func (e *PromptExecutionError) Error() string {
	return e.NodeType + " (node " + e.NodeID + "): " + e.ExceptionMessage
}
