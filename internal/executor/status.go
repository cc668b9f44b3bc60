package executor

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of one task on one host.
type Status uint8

const (
	StatusOK Status = iota + 1
	StatusChanged
	StatusSkipped
	StatusFailed
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusChanged:
		return "changed"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOK, StatusChanged, StatusSkipped, StatusFailed, StatusUnreachable:
		return true
	default:
		return false
	}
}

// Fatal reports whether this status halts the host's remaining task sequence.
func (s Status) Fatal() bool {
	return s == StatusFailed || s == StatusUnreachable
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status: %d", s)
	}
	return json.Marshal(s.String())
}

// TaskResult is the per-host record of one task execution.
type TaskResult struct {
	Host    string `json:"host"`
	Task    string `json:"task"`
	Status  Status `json:"status"`
	Msg     string `json:"msg,omitempty"`
	Ignored bool   `json:"ignored,omitempty"` // fatal status tolerated by ignore_errors
	Err     error  `json:"-"`
}
