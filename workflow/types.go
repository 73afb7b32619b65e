package workflow

import "errors"

var (
	// ErrNotFound indicates the named workflow file does not exist.
	ErrNotFound = errors.New("workflow file not found")
	// ErrInvalid indicates the document failed structural validation.
	ErrInvalid = errors.New("workflow is not valid")
	// ErrNodeNotFound indicates no node carries the requested input key.
	ErrNodeNotFound = errors.New("no node found")
	// ErrUnknownTone indicates a tone other than "positive" or "negative".
	ErrUnknownTone = errors.New("tone must be \"positive\" or \"negative\"")
)

// Tone classifies a text-prompt node.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
)

// Node is a single entry in an API-format workflow document.
//
// Inputs values can be one of:
//
//	float64
//	string
//	bool
//	[]interface{} where: [0] is the string id of the referenced node
//	                     [1] is a float64 (int) output slot index
type Node struct {
	Inputs    map[string]any `json:"inputs"`
	ClassType string         `json:"class_type,omitempty"`
	Meta      map[string]any `json:"_meta,omitempty"`
}

// linkTarget interprets an input value as a node link and returns the
// referenced node id.
func linkTarget(v any) (string, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return "", false
	}
	id, ok := pair[0].(string)
	if !ok {
		return "", false
	}
	if _, ok := pair[1].(float64); !ok {
		return "", false
	}
	return id, true
}
