package executor

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/eniac111/cephops/internal/sshconn"
)

// SSHRunner adapts an SSH/SFTP connection to the Runner interface. The
// ensure-primitives stat before mutating so re-runs against converged hosts
// report no change.
type SSHRunner struct {
	client *sshconn.Client
	name   string
}

// NewSSH wraps an established connection. name is the inventory host name the
// results should be attributed to.
func NewSSH(client *sshconn.Client, name string) *SSHRunner {
	return &SSHRunner{client: client, name: name}
}

func (r *SSHRunner) Host() string { return r.name }

func (r *SSHRunner) Run(ctx context.Context, cmd string) (Result, error) {
	exit, stdout, stderr, err := r.client.Run(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	return Result{ExitCode: exit, Stdout: stdout, Stderr: stderr}, nil
}

func (r *SSHRunner) Exists(ctx context.Context, path string) (bool, error) {
	return r.client.Exists(path)
}

func (r *SSHRunner) EnsureDir(ctx context.Context, path string) (bool, error) {
	info, err := r.client.Lstat(path)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists but is not a directory", path)
		}
		return false, nil
	}
	if err := r.client.MkdirAll(path); err != nil {
		return false, fmt.Errorf("mkdir %s: %w", path, err)
	}
	return true, nil
}

func (r *SSHRunner) EnsureFile(ctx context.Context, path string) (bool, error) {
	info, err := r.client.Lstat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%s exists but is a directory", path)
		}
		return false, nil
	}
	if err := r.client.CreateEmpty(path); err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	return true, nil
}

func (r *SSHRunner) RemoveAll(ctx context.Context, path string) (bool, error) {
	exists, err := r.client.Exists(path)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if err := r.client.RemoveAll(path); err != nil {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	return true, nil
}

func (r *SSHRunner) Chmod(ctx context.Context, path string, mode fs.FileMode) error {
	return r.client.Chmod(path, mode)
}
