// Package playbook models a declared sequence of idempotent operations as a
// directed list of tagged task variants, with conditions expressed as a small
// typed predicate AST over host facts.
package playbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Playbook describes one run: which host group to target and the ordered task
// list to execute against each selected host.
type Playbook struct {
	Name  string `yaml:"name,omitempty"`
	Hosts string `yaml:"hosts,omitempty"` // group selector; empty means all hosts
	Tasks []Task `yaml:"tasks"`
}

// Load reads and validates a playbook file.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook: %w", err)
	}
	pb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse playbook %s: %w", path, err)
	}
	return pb, nil
}

// Parse decodes playbook YAML.
func Parse(data []byte) (*Playbook, error) {
	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, err
	}
	if err := pb.Validate(); err != nil {
		return nil, err
	}
	return &pb, nil
}

// Validate checks structural requirements the decoder cannot.
func (pb *Playbook) Validate() error {
	if len(pb.Tasks) == 0 {
		return fmt.Errorf("no tasks defined")
	}
	for i, t := range pb.Tasks {
		if t.Action == nil {
			return fmt.Errorf("task %d has no action", i)
		}
		if t.RunOnce && t.IgnoreErrors {
			// A failed run-once task cancels the whole run; ignoring its
			// error would leave every other host waiting on work that never
			// happened.
			return fmt.Errorf("task %d (%s): run_once and ignore_errors are mutually exclusive", i, t.Name)
		}
	}
	return nil
}
