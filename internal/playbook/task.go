package playbook

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/cephops/internal/facts"
)

// Module names accepted in the `module` field of a task.
const (
	ModuleShell       = "shell"
	ModuleFile        = "file"
	ModuleService     = "service"
	ModuleHealthCheck = "healthcheck"
)

// File states supported by the file module.
const (
	FileStateDirectory = "directory"
	FileStateTouch     = "touch"
	FileStateAbsent    = "absent"
)

// Service states supported by the service module.
const (
	ServiceRestarted = "restarted"
	ServiceStarted   = "started"
	ServiceStopped   = "stopped"
)

// Action is one of the typed task variants. Param values may contain {fact}
// placeholders, expanded against the target host's facts at execution time.
type Action interface {
	Module() string
	Describe() string
}

// CommandAction runs a shell command line on the target host.
type CommandAction struct {
	Cmd string `yaml:"cmd" json:"cmd"`
}

func (a CommandAction) Module() string   { return ModuleShell }
func (a CommandAction) Describe() string { return a.Cmd }

// FileAction asserts a filesystem state on the target host.
type FileAction struct {
	Path  string `yaml:"path" json:"path"`
	State string `yaml:"state" json:"state"`
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Group string `yaml:"group,omitempty" json:"group,omitempty"`
	Mode  string `yaml:"mode,omitempty" json:"mode,omitempty"` // octal, e.g. "0600"
}

func (a FileAction) Module() string   { return ModuleFile }
func (a FileAction) Describe() string { return fmt.Sprintf("%s state=%s", a.Path, a.State) }

// FileMode parses the octal mode string. Zero with no error means "leave
// mode alone".
func (a FileAction) FileMode() (uint32, error) {
	if a.Mode == "" {
		return 0, nil
	}
	mode, err := strconv.ParseUint(a.Mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", a.Mode, err)
	}
	return uint32(mode), nil
}

// ServiceAction drives a systemd unit into the requested state.
type ServiceAction struct {
	Unit  string `yaml:"unit" json:"unit"`
	State string `yaml:"state" json:"state"`
}

func (a ServiceAction) Module() string   { return ModuleService }
func (a ServiceAction) Describe() string { return fmt.Sprintf("%s -> %s", a.Unit, a.State) }

// HealthCheckAction restarts a daemon and polls its control socket and HTTP
// endpoint. Retry counts and delay are playbook inputs, not constants.
type HealthCheckAction struct {
	Unit        string   `yaml:"unit" json:"unit"`
	URL         string   `yaml:"url" json:"url"`
	SocketPaths []string `yaml:"socket_paths" json:"socket_paths"`
	Retries     int      `yaml:"retries,omitempty" json:"retries,omitempty"`
	DelaySecs   int      `yaml:"delay,omitempty" json:"delay,omitempty"`
	Strict      bool     `yaml:"strict,omitempty" json:"strict,omitempty"`
}

func (a HealthCheckAction) Module() string   { return ModuleHealthCheck }
func (a HealthCheckAction) Describe() string { return fmt.Sprintf("%s via %s", a.Unit, a.URL) }

// Delay returns the configured inter-poll delay.
func (a HealthCheckAction) Delay() time.Duration {
	return time.Duration(a.DelaySecs) * time.Second
}

// Task is a single operation in a playbook: one typed action plus execution
// modifiers.
type Task struct {
	Name         string
	Action       Action
	When         *Clause
	RunOnce      bool
	DelegateTo   string
	IgnoreErrors bool
	Creates      string // skip the action when this remote path already exists
}

// ShouldRun evaluates the task's condition against the given facts. A task
// without a condition always runs.
func (t Task) ShouldRun(v facts.View) bool {
	if t.When == nil {
		return true
	}
	return t.When.Eval(v)
}

type rawTask struct {
	Name         string    `yaml:"name"`
	Module       string    `yaml:"module"`
	Params       yaml.Node `yaml:"params"`
	When         *Clause   `yaml:"when,omitempty"`
	RunOnce      bool      `yaml:"run_once,omitempty"`
	DelegateTo   string    `yaml:"delegate_to,omitempty"`
	IgnoreErrors bool      `yaml:"ignore_errors,omitempty"`
	Creates      string    `yaml:"creates,omitempty"`
}

func (t *Task) UnmarshalYAML(node *yaml.Node) error {
	var raw rawTask
	if err := node.Decode(&raw); err != nil {
		return err
	}

	action, err := decodeAction(raw.Module, raw.Params)
	if err != nil {
		if raw.Name != "" {
			return fmt.Errorf("task %q: %w", raw.Name, err)
		}
		return err
	}

	t.Name = raw.Name
	t.Action = action
	t.When = raw.When
	t.RunOnce = raw.RunOnce
	t.DelegateTo = raw.DelegateTo
	t.IgnoreErrors = raw.IgnoreErrors
	t.Creates = raw.Creates
	return nil
}

func decodeAction(module string, params yaml.Node) (Action, error) {
	switch module {
	case ModuleShell:
		var a CommandAction
		if err := params.Decode(&a); err != nil {
			return nil, err
		}
		if a.Cmd == "" {
			return nil, fmt.Errorf("shell module requires a cmd param")
		}
		return a, nil

	case ModuleFile:
		var a FileAction
		if err := params.Decode(&a); err != nil {
			return nil, err
		}
		if a.Path == "" {
			return nil, fmt.Errorf("file module requires a path param")
		}
		switch a.State {
		case FileStateDirectory, FileStateTouch, FileStateAbsent:
		case "":
			a.State = FileStateTouch
		default:
			return nil, fmt.Errorf("unknown file state %q", a.State)
		}
		if _, err := a.FileMode(); err != nil {
			return nil, err
		}
		return a, nil

	case ModuleService:
		var a ServiceAction
		if err := params.Decode(&a); err != nil {
			return nil, err
		}
		if a.Unit == "" {
			return nil, fmt.Errorf("service module requires a unit param")
		}
		switch a.State {
		case ServiceRestarted, ServiceStarted, ServiceStopped:
		default:
			return nil, fmt.Errorf("unknown service state %q", a.State)
		}
		return a, nil

	case ModuleHealthCheck:
		var a HealthCheckAction
		if err := params.Decode(&a); err != nil {
			return nil, err
		}
		if a.Unit == "" || a.URL == "" {
			return nil, fmt.Errorf("healthcheck module requires unit and url params")
		}
		return a, nil

	case "":
		return nil, fmt.Errorf("task module is required")
	default:
		return nil, fmt.Errorf("unknown module %q", module)
	}
}
