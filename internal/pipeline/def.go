package pipeline

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the declarative description of a pipeline: which processes
// to instantiate and how their ports are wired.
type Definition struct {
	Name         string          `yaml:"name" json:"name"`
	Description  string          `yaml:"description,omitempty" json:"description,omitempty"`
	EdgeCapacity int             `yaml:"edge_capacity,omitempty" json:"edge_capacity,omitempty"`
	Processes    []ProcessDef    `yaml:"processes" json:"processes"`
	Connections  []ConnectionDef `yaml:"connections" json:"connections"`
}

// ProcessDef names one process instance and its configuration.
type ProcessDef struct {
	Name   string         `yaml:"name" json:"name"`
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// ConnectionDef wires an output port to an input port. Endpoints are
// written "process.port".
type ConnectionDef struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Endpoint is a parsed connection end.
type Endpoint struct {
	Process string
	Port    string
}

// ParseEndpoint splits a "process.port" reference. The port may itself
// contain dots; only the first one separates.
func ParseEndpoint(s string) (Endpoint, error) {
	proc, port, ok := strings.Cut(s, ".")
	if !ok || proc == "" || port == "" {
		return Endpoint{}, fmt.Errorf("endpoint %q is not of the form process.port", s)
	}
	return Endpoint{Process: proc, Port: port}, nil
}

// Parse decodes a YAML pipeline definition and validates its references.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing pipeline definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the definition for duplicate names and dangling
// connection endpoints. Port existence is checked at assembly time, once
// the processes exist.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("pipeline has no name")
	}
	if len(d.Processes) == 0 {
		return fmt.Errorf("pipeline %q has no processes", d.Name)
	}

	names := make(map[string]bool, len(d.Processes))
	for _, p := range d.Processes {
		if p.Name == "" || p.Type == "" {
			return fmt.Errorf("pipeline %q: every process needs a name and a type", d.Name)
		}
		if names[p.Name] {
			return fmt.Errorf("pipeline %q: duplicate process name %q", d.Name, p.Name)
		}
		names[p.Name] = true
	}

	for _, c := range d.Connections {
		from, err := ParseEndpoint(c.From)
		if err != nil {
			return fmt.Errorf("pipeline %q: %w", d.Name, err)
		}
		to, err := ParseEndpoint(c.To)
		if err != nil {
			return fmt.Errorf("pipeline %q: %w", d.Name, err)
		}
		if !names[from.Process] {
			return fmt.Errorf("pipeline %q: connection references unknown process %q", d.Name, from.Process)
		}
		if !names[to.Process] {
			return fmt.Errorf("pipeline %q: connection references unknown process %q", d.Name, to.Process)
		}
	}
	return nil
}
