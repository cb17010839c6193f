package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/leengari/tabflow/internal/steps"
)

// Load reads a workflow document from disk. YAML and JSON are both accepted;
// YAML is normalized to JSON before the typed union is decoded.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading workflow: %w", err)
	}
	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading workflow %s: %w", path, err)
	}
	return w, nil
}

// Parse decodes a workflow document from YAML or JSON bytes. The document
// carries a "workflow" field holding the ordered step list.
func Parse(data []byte) (*Workflow, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	var doc struct {
		Workflow []json.RawMessage `json:"workflow"`
	}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if doc.Workflow == nil {
		return nil, fmt.Errorf("document has no \"workflow\" field")
	}
	w := &Workflow{Steps: make([]steps.Step, 0, len(doc.Workflow))}
	for i, raw := range doc.Workflow {
		step, err := steps.DecodeStep(raw)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		w.Steps = append(w.Steps, step)
	}
	return w, nil
}
