// Package health restarts a daemon and verifies it came back: first by
// waiting for its control socket, then by probing its HTTP endpoint with
// whichever probe tool the host has. Retry counts and delay are inputs, and
// polling uses a fixed delay with no backoff.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eniac111/cephops/internal/cephcmd"
	"github.com/eniac111/cephops/internal/executor"
)

// Failure classes. Socket and probe timeouts map to exit 1 at the CLI;
// a missing probe tool is only an error in strict mode.
var (
	ErrSocketTimeout = errors.New("control socket did not appear")
	ErrProbeTimeout  = errors.New("endpoint did not respond")
	ErrNoProbeTool   = errors.New("no HTTP probe tool available")
)

const (
	defaultRetries = 5
	defaultDelay   = 2 * time.Second
)

// Config parameterizes one health check. Nothing here is hardcoded in the
// checker: unit name, socket candidates, probe URL, and the retry budget all
// come from the caller.
type Config struct {
	Unit        string   // systemd unit to restart, e.g. ceph-radosgw@rgw.rgw0
	SocketPaths []string // control socket candidates, first existing wins
	ProbeURL    string   // http://host_ip:frontend_port
	Retries     int
	Delay       time.Duration
	// Strict turns "no probe tool installed" from a logged success into a
	// failure. The lenient default preserves the historical behavior.
	Strict bool
}

func (c Config) withDefaults() Config {
	if c.Retries <= 0 {
		c.Retries = defaultRetries
	}
	if c.Delay <= 0 {
		c.Delay = defaultDelay
	}
	return c
}

// Checker drives one daemon through restart and verification.
type Checker struct {
	runner executor.Runner
	cfg    Config
	phase  Phase

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Checker for the given host runner.
func New(r executor.Runner, cfg Config) *Checker {
	return &Checker{
		runner: r,
		cfg:    cfg.withDefaults(),
		phase:  PhaseRestarting,
		sleep:  sleepCtx,
	}
}

// Phase returns the checker's current phase.
func (c *Checker) Phase() Phase { return c.phase }

func (c *Checker) transition(next Phase) {
	if !c.phase.CanTransition(next) {
		// A broken transition is a programming error in the checker itself.
		panic(fmt.Sprintf("health: illegal phase transition %s -> %s", c.phase, next))
	}
	c.phase = next
}

// Check restarts the unit and polls until the daemon is verified healthy or
// the retry budget is exhausted. A nil return means healthy, including the
// lenient cannot-verify case.
func (c *Checker) Check(ctx context.Context) error {
	log := slog.With("host", c.runner.Host(), "unit", c.cfg.Unit)

	if err := c.restart(ctx); err != nil {
		c.transition(PhaseFailed)
		return err
	}
	c.transition(PhaseWaitSocket)

	found, err := c.waitForSocket(ctx)
	if err != nil {
		c.transition(PhaseFailed)
		return err
	}
	if !found {
		c.transition(PhaseFailed)
		return fmt.Errorf("%w within %d attempts", ErrSocketTimeout, c.cfg.Retries)
	}

	probe, err := c.selectProbe(ctx)
	if err != nil {
		if errors.Is(err, ErrNoProbeTool) && !c.cfg.Strict {
			log.Warn("cannot verify endpoint, no probe tool on host", "url", c.cfg.ProbeURL)
			c.transition(PhaseHealthy)
			return nil
		}
		c.transition(PhaseFailed)
		return err
	}
	c.transition(PhaseWaitHTTP)

	ok, err := c.probeHTTP(ctx, probe)
	if err != nil {
		c.transition(PhaseFailed)
		return err
	}
	if !ok {
		c.transition(PhaseFailed)
		return fmt.Errorf("%w: %s within %d attempts", ErrProbeTimeout, c.cfg.ProbeURL, c.cfg.Retries)
	}

	c.transition(PhaseHealthy)
	log.Debug("daemon verified healthy", "url", c.cfg.ProbeURL)
	return nil
}

func (c *Checker) restart(ctx context.Context) error {
	cmd := "systemctl restart " + cephcmd.ShellQuote(c.cfg.Unit)
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("restart %s: %w", c.cfg.Unit, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("restart %s exited %d: %s", c.cfg.Unit, res.ExitCode, res.Stderr)
	}
	return nil
}

// waitForSocket polls the socket candidates in order, sleeping the fixed
// delay after every miss. N retries cost up to N delays.
func (c *Checker) waitForSocket(ctx context.Context) (bool, error) {
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		for _, path := range c.cfg.SocketPaths {
			exists, err := c.runner.Exists(ctx, path)
			if err != nil {
				return false, fmt.Errorf("check socket %s: %w", path, err)
			}
			if exists {
				return true, nil
			}
		}
		if err := c.sleep(ctx, c.cfg.Delay); err != nil {
			return false, err
		}
	}
	return false, nil
}

// probeTool is an HTTP probe command shape for one of the supported tools.
type probeTool struct {
	name string
	cmd  func(url string) string
}

var probeTools = []probeTool{
	{
		name: "curl",
		cmd: func(url string) string {
			return "curl --silent --fail --output /dev/null " + cephcmd.ShellQuote(url)
		},
	},
	{
		name: "wget",
		cmd: func(url string) string {
			return "wget --quiet --tries=1 --spider " + cephcmd.ShellQuote(url)
		},
	},
}

// selectProbe picks the first available probe tool, preferring curl.
func (c *Checker) selectProbe(ctx context.Context) (probeTool, error) {
	for _, tool := range probeTools {
		res, err := c.runner.Run(ctx, "command -v "+tool.name)
		if err != nil {
			return probeTool{}, fmt.Errorf("detect %s: %w", tool.name, err)
		}
		if res.ExitCode == 0 {
			return tool, nil
		}
	}
	return probeTool{}, ErrNoProbeTool
}

func (c *Checker) probeHTTP(ctx context.Context, tool probeTool) (bool, error) {
	cmd := tool.cmd(c.cfg.ProbeURL)
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		res, err := c.runner.Run(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("probe %s: %w", c.cfg.ProbeURL, err)
		}
		if res.ExitCode == 0 {
			return true, nil
		}
		if err := c.sleep(ctx, c.cfg.Delay); err != nil {
			return false, err
		}
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
