package health

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/cephops/internal/executor"
)

// scriptedRunner fakes one host for checker tests: socket existence is a
// function of the poll attempt, commands are answered by exit code.
type scriptedRunner struct {
	socketAt   int // poll attempt (1-based) at which the socket appears; 0 = never
	socketPath string

	curlMissing  bool
	wgetMissing  bool
	probeFailAll bool

	attempt     int
	existsCalls []string
	commands    []string
}

func (s *scriptedRunner) Host() string { return "rgw0" }

func (s *scriptedRunner) Run(ctx context.Context, cmd string) (executor.Result, error) {
	s.commands = append(s.commands, cmd)
	switch {
	case strings.HasPrefix(cmd, "systemctl restart"):
		return executor.Result{}, nil
	case cmd == "command -v curl":
		if s.curlMissing {
			return executor.Result{ExitCode: 1}, nil
		}
		return executor.Result{ExitCode: 0, Stdout: "/usr/bin/curl"}, nil
	case cmd == "command -v wget":
		if s.wgetMissing {
			return executor.Result{ExitCode: 1}, nil
		}
		return executor.Result{ExitCode: 0, Stdout: "/usr/bin/wget"}, nil
	case strings.HasPrefix(cmd, "curl ") || strings.HasPrefix(cmd, "wget "):
		if s.probeFailAll {
			return executor.Result{ExitCode: 7}, nil
		}
		return executor.Result{}, nil
	default:
		return executor.Result{}, nil
	}
}

func (s *scriptedRunner) Exists(ctx context.Context, path string) (bool, error) {
	s.existsCalls = append(s.existsCalls, path)
	if s.socketAt > 0 && s.attempt+1 >= s.socketAt && path == s.socketPath {
		return true, nil
	}
	return false, nil
}

func (s *scriptedRunner) EnsureDir(ctx context.Context, path string) (bool, error)  { return false, nil }
func (s *scriptedRunner) EnsureFile(ctx context.Context, path string) (bool, error) { return false, nil }
func (s *scriptedRunner) RemoveAll(ctx context.Context, path string) (bool, error)  { return false, nil }
func (s *scriptedRunner) Chmod(ctx context.Context, path string, mode fs.FileMode) error {
	return nil
}

var (
	sockFQDN = "/var/run/ceph/ceph-client.rgw.rgw0.example.com.asok"
	sockHost = "/var/run/ceph/ceph-client.rgw.rgw0.asok"
)

func newTestChecker(r *scriptedRunner, cfg Config) (*Checker, *[]time.Duration) {
	c := New(r, cfg)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		r.attempt++
		return nil
	}
	return c, &slept
}

func baseConfig() Config {
	return Config{
		Unit:        "ceph-radosgw@rgw.rgw0",
		SocketPaths: []string{sockFQDN, sockHost},
		ProbeURL:    "http://10.0.0.10:8080",
		Retries:     3,
		Delay:       time.Second,
	}
}

func TestSocketTimeout(t *testing.T) {
	r := &scriptedRunner{socketAt: 0}
	c, slept := newTestChecker(r, baseConfig())

	err := c.Check(context.Background())
	require.ErrorIs(t, err, ErrSocketTimeout)
	assert.Equal(t, PhaseFailed, c.Phase())

	// Exactly 3 poll attempts (each trying both candidates) and 3 fixed
	// delays elapsed.
	assert.Len(t, r.existsCalls, 3*2)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, *slept)
}

func TestSocketCandidateOrder(t *testing.T) {
	r := &scriptedRunner{socketAt: 1, socketPath: sockHost}
	c, _ := newTestChecker(r, baseConfig())

	require.NoError(t, c.Check(context.Background()))

	// The fqdn variant is always consulted before the hostname variant.
	require.GreaterOrEqual(t, len(r.existsCalls), 2)
	assert.Equal(t, sockFQDN, r.existsCalls[0])
	assert.Equal(t, sockHost, r.existsCalls[1])
}

func TestSocketOnSecondPollProceedsToHTTP(t *testing.T) {
	r := &scriptedRunner{socketAt: 2, socketPath: sockFQDN}
	c, slept := newTestChecker(r, baseConfig())

	require.NoError(t, c.Check(context.Background()))
	assert.Equal(t, PhaseHealthy, c.Phase())
	assert.Len(t, *slept, 1, "one miss, one delay")

	probes := commandsMatching(r, "curl --silent")
	require.NotEmpty(t, probes, "HTTP probing must follow socket discovery")
	assert.Contains(t, probes[0], "http://10.0.0.10:8080")
}

func TestNoProbeToolIsLenientSuccess(t *testing.T) {
	r := &scriptedRunner{socketAt: 1, socketPath: sockFQDN, curlMissing: true, wgetMissing: true}
	c, _ := newTestChecker(r, baseConfig())

	require.NoError(t, c.Check(context.Background()))
	assert.Equal(t, PhaseHealthy, c.Phase())
	assert.Empty(t, commandsMatching(r, "curl --silent"))
	assert.Empty(t, commandsMatching(r, "wget --quiet"))
}

func TestNoProbeToolStrictFails(t *testing.T) {
	cfg := baseConfig()
	cfg.Strict = true
	r := &scriptedRunner{socketAt: 1, socketPath: sockFQDN, curlMissing: true, wgetMissing: true}
	c, _ := newTestChecker(r, cfg)

	err := c.Check(context.Background())
	require.ErrorIs(t, err, ErrNoProbeTool)
	assert.Equal(t, PhaseFailed, c.Phase())
}

func TestProbeFallsBackToWget(t *testing.T) {
	r := &scriptedRunner{socketAt: 1, socketPath: sockFQDN, curlMissing: true}
	c, _ := newTestChecker(r, baseConfig())

	require.NoError(t, c.Check(context.Background()))
	assert.Empty(t, commandsMatching(r, "curl --silent"))
	assert.NotEmpty(t, commandsMatching(r, "wget --quiet --tries=1 --spider"))
}

func TestProbeTimeout(t *testing.T) {
	r := &scriptedRunner{socketAt: 1, socketPath: sockFQDN, probeFailAll: true}
	c, _ := newTestChecker(r, baseConfig())

	err := c.Check(context.Background())
	require.ErrorIs(t, err, ErrProbeTimeout)
	assert.Equal(t, PhaseFailed, c.Phase())
	assert.Len(t, commandsMatching(r, "curl --silent"), 3)
}

func TestRestartFailure(t *testing.T) {
	r := &scriptedRunner{}
	c, _ := newTestChecker(r, baseConfig())
	// Force the restart to report a failure.
	c.runner = runnerFunc(func(ctx context.Context, cmd string) (executor.Result, error) {
		return executor.Result{ExitCode: 1, Stderr: "Job for ceph-radosgw failed"}, nil
	})

	err := c.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited 1")
	assert.Equal(t, PhaseFailed, c.Phase())
}

func TestDefaults(t *testing.T) {
	c := New(&scriptedRunner{}, Config{Unit: "u", ProbeURL: "http://x"})
	assert.Equal(t, defaultRetries, c.cfg.Retries)
	assert.Equal(t, defaultDelay, c.cfg.Delay)
}

func commandsMatching(r *scriptedRunner, prefix string) []string {
	var out []string
	for _, cmd := range r.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

// runnerFunc adapts a bare Run function to executor.Runner for single-step
// failure injection.
type runnerFunc func(ctx context.Context, cmd string) (executor.Result, error)

func (f runnerFunc) Host() string { return "rgw0" }
func (f runnerFunc) Run(ctx context.Context, cmd string) (executor.Result, error) {
	return f(ctx, cmd)
}
func (f runnerFunc) Exists(ctx context.Context, path string) (bool, error)          { return false, nil }
func (f runnerFunc) EnsureDir(ctx context.Context, path string) (bool, error)       { return false, nil }
func (f runnerFunc) EnsureFile(ctx context.Context, path string) (bool, error)      { return false, nil }
func (f runnerFunc) RemoveAll(ctx context.Context, path string) (bool, error)       { return false, nil }
func (f runnerFunc) Chmod(ctx context.Context, path string, mode fs.FileMode) error { return nil }
