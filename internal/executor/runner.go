// Package executor runs commands and file-state assertions on remote hosts.
// It owns the idempotency contract: an operation guarded by an existing
// creates-path is a no-op success, and every file-state primitive reports
// whether it changed anything.
package executor

import (
	"context"
	"io/fs"
)

// Result captures one remote command execution.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes operations against a single remote host. Run reserves its
// error for transport failures; a non-zero exit is reported in the Result.
// The Ensure/Remove primitives follow the (changed, err) convention.
type Runner interface {
	Host() string
	Run(ctx context.Context, cmd string) (Result, error)
	Exists(ctx context.Context, path string) (bool, error)
	EnsureDir(ctx context.Context, path string) (bool, error)
	EnsureFile(ctx context.Context, path string) (bool, error)
	RemoveAll(ctx context.Context, path string) (bool, error)
	Chmod(ctx context.Context, path string, mode fs.FileMode) error
}
