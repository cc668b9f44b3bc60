// Package executortest provides a scriptable in-memory Runner for tests.
package executortest

import (
	"context"
	"io/fs"
	"strings"
	"sync"

	"github.com/eniac111/cephops/internal/executor"
)

// FakeRunner implements executor.Runner against an in-memory filesystem and a
// pluggable command handler. It is safe for concurrent use.
type FakeRunner struct {
	Name string

	// Handler services Run calls. Nil means every command succeeds with
	// empty output.
	Handler func(cmd string) (executor.Result, error)

	mu    sync.Mutex
	dirs  map[string]bool // path -> is directory
	modes map[string]fs.FileMode
	calls []string
}

// New returns an empty FakeRunner for the named host.
func New(name string) *FakeRunner {
	return &FakeRunner{
		Name:  name,
		dirs:  make(map[string]bool),
		modes: make(map[string]fs.FileMode),
	}
}

// AddFile seeds a regular file.
func (f *FakeRunner) AddFile(path string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = false
	return f
}

// AddDir seeds a directory.
func (f *FakeRunner) AddDir(path string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	return f
}

// Calls returns every command line passed to Run, in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallsMatching returns the recorded commands containing substr.
func (f *FakeRunner) CallsMatching(substr string) []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Mode returns the last mode set on path via Chmod.
func (f *FakeRunner) Mode(path string) fs.FileMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modes[path]
}

func (f *FakeRunner) Host() string { return f.Name }

func (f *FakeRunner) Run(ctx context.Context, cmd string) (executor.Result, error) {
	if err := ctx.Err(); err != nil {
		return executor.Result{}, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return executor.Result{}, nil
	}
	return handler(cmd)
}

func (f *FakeRunner) Exists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.dirs[path]
	return ok, nil
}

func (f *FakeRunner) EnsureDir(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[path]; ok {
		return false, nil
	}
	f.dirs[path] = true
	return true, nil
}

func (f *FakeRunner) EnsureFile(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[path]; ok {
		return false, nil
	}
	f.dirs[path] = false
	return true, nil
}

func (f *FakeRunner) RemoveAll(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dirs[path]; !ok {
		return false, nil
	}
	delete(f.dirs, path)
	return true, nil
}

func (f *FakeRunner) Chmod(ctx context.Context, path string, mode fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes[path] = mode
	return nil
}
