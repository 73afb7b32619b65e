// Package workflow loads, mutates and saves ComfyUI workflows in their
// API format: a JSON mapping from node id to a node's inputs and class
// type.  This is the format produced by ComfyUI's "Save (API Format)"
// menu entry, and the format the /prompt endpoint accepts.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RandomSeed is the sentinel seed value that requests a fresh random
// seed for every node holding a seed input.
const RandomSeed = -1

// randomSeedMax bounds generated seeds to [0, randomSeedMax).
const randomSeedMax = 1_000_000

// Workflow is an API-format workflow document together with the file
// name and directory it was loaded from.
type Workflow struct {
	name  string
	dir   string
	nodes map[string]*Node
}

// Load reads the named workflow file from dir.  A ".json" extension is
// appended to name if missing.  The document is validated before it is
// returned; see Validate for the rules.
func Load(dir string, name string) (*Workflow, error) {
	name = ensureExt(name, ".json")
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return parse(data, dir, name)
}

// Parse builds a Workflow from raw API-format JSON.  Workflows created
// this way save into dir under name.
func Parse(data []byte, dir string, name string) (*Workflow, error) {
	return parse(data, dir, ensureExt(name, ".json"))
}

func parse(data []byte, dir string, name string) (*Workflow, error) {
	nodes := make(map[string]*Node)
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	w := &Workflow{name: name, dir: dir, nodes: nodes}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Name returns the file name the workflow was loaded from.
func (w *Workflow) Name() string { return w.name }

// Nodes returns the underlying node map.  Mutations through the map are
// visible to subsequent operations.
func (w *Workflow) Nodes() map[string]*Node { return w.nodes }

// sortedIDs returns the node ids in sorted order.  Scans use this order
// so that "first match" is deterministic.
func (w *Workflow) sortedIDs() []string {
	ids := make([]string, 0, len(w.nodes))
	for id := range w.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeIDByInput scans the document for the first node whose inputs
// contain key as a node link, and returns the referenced node id.
// Returns ErrNodeNotFound when no node matches.
func (w *Workflow) NodeIDByInput(key string) (string, error) {
	for _, id := range w.sortedIDs() {
		if v, ok := w.nodes[id].Inputs[key]; ok {
			if target, ok := linkTarget(v); ok {
				return target, nil
			}
		}
	}
	return "", fmt.Errorf("%w with input %q", ErrNodeNotFound, key)
}

// PromptNodeID returns the id of the text node referenced by the given
// tone.  The tone must be TonePositive or ToneNegative.
func (w *Workflow) PromptNodeID(tone Tone) (string, error) {
	if tone != TonePositive && tone != ToneNegative {
		return "", fmt.Errorf("%w, got %q", ErrUnknownTone, tone)
	}
	return w.NodeIDByInput(string(tone))
}

// SetPrompt replaces the text of the tone-tagged prompt node.  When the
// workflow has no node for the tone, a warning is logged and the
// workflow is left unchanged.
func (w *Workflow) SetPrompt(tone Tone, text string) error {
	id, err := w.PromptNodeID(tone)
	if errors.Is(err, ErrNodeNotFound) {
		slog.Warn("no prompt node found, skipping", "tone", tone, "workflow", w.name)
		return nil
	}
	if err != nil {
		return err
	}
	w.nodes[id].Inputs["text"] = text
	return nil
}

// SetPositivePrompt replaces the positive prompt text.
func (w *Workflow) SetPositivePrompt(text string) error {
	return w.SetPrompt(TonePositive, text)
}

// SetNegativePrompt replaces the negative prompt text.
func (w *Workflow) SetNegativePrompt(text string) error {
	return w.SetPrompt(ToneNegative, text)
}

// Prompt returns the current text of the tone-tagged prompt node, or ""
// when the workflow has no node for the tone.
func (w *Workflow) Prompt(tone Tone) string {
	id, err := w.PromptNodeID(tone)
	if err != nil {
		return ""
	}
	text, _ := w.nodes[id].Inputs["text"].(string)
	return text
}

// ModelName returns the checkpoint name of the node referenced by a
// "model" input.
func (w *Workflow) ModelName() (string, error) {
	id, err := w.NodeIDByInput("model")
	if err != nil {
		return "", err
	}
	name, _ := w.nodes[id].Inputs["ckpt_name"].(string)
	return name, nil
}

// NodeTitle returns a display name for the node: its _meta title when
// present, otherwise its class type, otherwise the id itself.
func (w *Workflow) NodeTitle(id string) string {
	n, ok := w.nodes[id]
	if !ok {
		return id
	}
	if title, ok := n.Meta["title"].(string); ok && title != "" {
		return title
	}
	if n.ClassType != "" {
		return n.ClassType
	}
	return id
}

// SetSteps sets the sampling step count on every node that has a
// "steps" input and returns the number of nodes updated.
func (w *Workflow) SetSteps(steps int) int {
	count := 0
	for _, n := range w.nodes {
		if _, ok := n.Inputs["steps"]; ok {
			n.Inputs["steps"] = steps
			count++
		}
	}
	return count
}

// SetSeed sets the seed on every node that has a "seed" input.  The
// sentinel RandomSeed draws a fresh random value in [0, 1000000) for
// each node.
func (w *Workflow) SetSeed(seed int64) int {
	count := 0
	for _, n := range w.nodes {
		if _, ok := n.Inputs["seed"]; ok {
			if seed == RandomSeed {
				n.Inputs["seed"] = rand.Int63n(randomSeedMax)
			} else {
				n.Inputs["seed"] = seed
			}
			count++
		}
	}
	return count
}

// MarshalJSON serializes just the node document, so a saved workflow is
// loadable by ComfyUI and by Load.
func (w *Workflow) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.nodes)
}

// Save writes the document to the named file in the workflow's
// directory.  An empty name saves back to the original file; a ".json"
// extension is appended if missing.
func (w *Workflow) Save(name string) error {
	if name == "" {
		name = w.name
	}
	name = ensureExt(name, ".json")
	data, err := json.MarshalIndent(w.nodes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, name), data, 0o644)
}

func ensureExt(name string, ext string) string {
	if !strings.HasSuffix(name, ext) {
		return name + ext
	}
	return name
}
