package executor_test

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/cephops/internal/executor"
	"github.com/eniac111/cephops/internal/executor/executortest"
	"github.com/eniac111/cephops/internal/facts"
	"github.com/eniac111/cephops/internal/playbook"
)

func rgwFacts() facts.View {
	return facts.New(map[string]string{
		"cluster":  "ceph",
		"hostname": "rgw0",
	})
}

func TestApplyCreatesGuardIsNoop(t *testing.T) {
	r := executortest.New("rgw0").
		AddFile("/var/lib/ceph/radosgw/ceph-rgw.rgw0/keyring")

	task := playbook.Task{
		Name:    "create keyring",
		Action:  playbook.CommandAction{Cmd: "ceph auth get-or-create client.rgw.{hostname}"},
		Creates: "/var/lib/ceph/radosgw/{cluster}-rgw.{hostname}/keyring",
	}

	res := executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusOK, res.Status)
	assert.Empty(t, r.Calls(), "guarded action must not execute")

	// Re-running is equally a no-op.
	res = executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusOK, res.Status)
}

func TestApplyCommandRunsWhenGuardAbsent(t *testing.T) {
	r := executortest.New("rgw0")
	task := playbook.Task{
		Name:    "create keyring",
		Action:  playbook.CommandAction{Cmd: "ceph auth get-or-create client.rgw.{hostname}"},
		Creates: "/var/lib/ceph/radosgw/{cluster}-rgw.{hostname}/keyring",
	}

	res := executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusChanged, res.Status)
	require.Len(t, r.Calls(), 1)
	assert.Equal(t, "ceph auth get-or-create client.rgw.rgw0", r.Calls()[0])
}

func TestApplyCommandNonZeroExit(t *testing.T) {
	r := executortest.New("rgw0")
	r.Handler = func(cmd string) (executor.Result, error) {
		return executor.Result{ExitCode: 13, Stderr: "Error EACCES: access denied\nmore detail"}, nil
	}

	res := executor.Apply(context.Background(), r, playbook.Task{
		Name:   "doomed",
		Action: playbook.CommandAction{Cmd: "ceph osd pool create rgw.root"},
	}, rgwFacts())

	assert.Equal(t, executor.StatusFailed, res.Status)
	assert.Contains(t, res.Msg, "exited 13")
	assert.Contains(t, res.Msg, "access denied")
	assert.NotContains(t, res.Msg, "more detail", "only the first stderr line is surfaced")
}

func TestApplyCommandTransportFailure(t *testing.T) {
	r := executortest.New("rgw0")
	r.Handler = func(cmd string) (executor.Result, error) {
		return executor.Result{}, errors.New("connection reset")
	}

	res := executor.Apply(context.Background(), r, playbook.Task{
		Name:   "unlucky",
		Action: playbook.CommandAction{Cmd: "true"},
	}, rgwFacts())

	assert.Equal(t, executor.StatusUnreachable, res.Status)
}

func TestApplyFileDirectory(t *testing.T) {
	r := executortest.New("rgw0")
	task := playbook.Task{
		Name: "keyring directory",
		Action: playbook.FileAction{
			Path:  "/var/lib/ceph/radosgw/{cluster}-rgw.{hostname}",
			State: playbook.FileStateDirectory,
			Owner: "ceph",
			Group: "ceph",
			Mode:  "0600",
		},
	}

	res := executor.Apply(context.Background(), r, task, rgwFacts())
	require.Equal(t, executor.StatusChanged, res.Status, res.Msg)
	assert.Equal(t, fs.FileMode(0o600), r.Mode("/var/lib/ceph/radosgw/ceph-rgw.rgw0"))

	chowns := r.CallsMatching("chown")
	require.Len(t, chowns, 1)
	assert.Contains(t, chowns[0], "ceph:ceph")

	// Second apply: directory already there, still ok.
	res = executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusOK, res.Status)
}

func TestApplyFileAbsent(t *testing.T) {
	r := executortest.New("rgw0").AddFile("/tmp/stale")
	task := playbook.Task{
		Name:   "remove stale",
		Action: playbook.FileAction{Path: "/tmp/stale", State: playbook.FileStateAbsent},
	}

	res := executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusChanged, res.Status)

	res = executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusOK, res.Status)
}

func TestApplyService(t *testing.T) {
	r := executortest.New("rgw0")
	task := playbook.Task{
		Name:   "restart gateway",
		Action: playbook.ServiceAction{Unit: "ceph-radosgw@rgw.{hostname}", State: playbook.ServiceRestarted},
	}

	res := executor.Apply(context.Background(), r, task, rgwFacts())
	assert.Equal(t, executor.StatusChanged, res.Status)
	require.Len(t, r.Calls(), 1)
	assert.Contains(t, r.Calls()[0], "systemctl restart")
	assert.Contains(t, r.Calls()[0], "ceph-radosgw@rgw.rgw0")
}

func TestApplyExpandFailure(t *testing.T) {
	r := executortest.New("rgw0")
	res := executor.Apply(context.Background(), r, playbook.Task{
		Name:   "bad placeholder",
		Action: playbook.CommandAction{Cmd: "echo {undefined_fact}"},
	}, rgwFacts())

	assert.Equal(t, executor.StatusFailed, res.Status)
	assert.Empty(t, r.Calls())
}
