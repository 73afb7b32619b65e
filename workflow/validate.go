package workflow

import "fmt"

// Validate checks the structural invariants of the document: every node
// has an inputs map and a class type, and every link-valued input
// references a node that exists in the document.  Full semantic
// validation (input types, required widget values) stays with the
// ComfyUI server, which re-checks the prompt on submission.
func (w *Workflow) Validate() error {
	if len(w.nodes) == 0 {
		return fmt.Errorf("%w: %s: document has no nodes", ErrInvalid, w.name)
	}
	for _, id := range w.sortedIDs() {
		n := w.nodes[id]
		if n == nil || n.Inputs == nil {
			return fmt.Errorf("%w: %s: node %s has no inputs", ErrInvalid, w.name, id)
		}
		if n.ClassType == "" {
			return fmt.Errorf("%w: %s: node %s has no class_type", ErrInvalid, w.name, id)
		}
		for key, v := range n.Inputs {
			target, ok := linkTarget(v)
			if !ok {
				continue
			}
			if _, exists := w.nodes[target]; !exists {
				return fmt.Errorf("%w: %s: node %s input %q references missing node %s",
					ErrInvalid, w.name, id, key, target)
			}
		}
	}
	return nil
}
