// Package orchestrator sequences playbook tasks across a host fleet: one
// logical thread of control per host with a bounded fan-out, strictly
// sequential tasks within a host, and a synchronized run-once barrier as the
// only state shared between hosts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eniac111/cephops/internal/executor"
	"github.com/eniac111/cephops/internal/facts"
	"github.com/eniac111/cephops/internal/health"
	"github.com/eniac111/cephops/internal/inventory"
	"github.com/eniac111/cephops/internal/playbook"
)

// DefaultFanOut bounds how many hosts are worked on in parallel when the
// caller does not say otherwise.
const DefaultFanOut = 5

// ConnectFunc opens a runner for one host. The returned closer tears the
// connection down after the run.
type ConnectFunc func(ctx context.Context, host inventory.Host) (executor.Runner, func() error, error)

// Orchestrator executes a playbook against an inventory.
type Orchestrator struct {
	inv     *inventory.Inventory
	connect ConnectFunc
	fanout  int

	pool *runnerPool

	onceMu   sync.Mutex
	onceRuns map[int]*onceRun
}

type onceRun struct {
	once sync.Once
	res  executor.TaskResult
}

// Option tweaks orchestrator construction.
type Option func(*Orchestrator)

// WithFanOut bounds the number of hosts executed in parallel.
func WithFanOut(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.fanout = n
		}
	}
}

// New builds an Orchestrator over the given inventory and connector.
func New(inv *inventory.Inventory, connect ConnectFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inv:      inv,
		connect:  connect,
		fanout:   DefaultFanOut,
		onceRuns: make(map[int]*onceRun),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the playbook against its selected host group. Task failures
// land in the report rather than the error; the error covers structural
// problems such as an empty host group.
func (o *Orchestrator) Run(ctx context.Context, pb *playbook.Playbook) (*Report, error) {
	hosts := o.inv.Group(pb.Hosts)
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts in group %q", pb.Hosts)
	}

	o.pool = newRunnerPool(o.connect)
	defer o.pool.Close()

	report := &Report{}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := &errgroup.Group{}
	g.SetLimit(o.fanout)
	for _, host := range hosts {
		host := host
		g.Go(func() error {
			o.runHost(runCtx, cancel, pb, host, report)
			return nil
		})
	}
	g.Wait()

	return report, nil
}

// runHost walks the task list for one host. A fatal, unignored result halts
// the host's remaining sequence; a fatal run-once result cancels the whole
// run.
func (o *Orchestrator) runHost(ctx context.Context, cancel context.CancelFunc, pb *playbook.Playbook, host inventory.Host, report *Report) {
	log := slog.With("host", host.Name)
	v := o.inv.FactsFor(host)

	for i, task := range pb.Tasks {
		if ctx.Err() != nil {
			report.add(executor.TaskResult{
				Host: host.Name, Task: task.Name,
				Status: executor.StatusSkipped, Msg: "run aborted",
			})
			continue
		}

		if !task.ShouldRun(v) {
			log.Debug("condition not met, skipping task", "task", task.Name)
			report.add(executor.TaskResult{
				Host: host.Name, Task: task.Name,
				Status: executor.StatusSkipped, Msg: "condition not met",
			})
			continue
		}

		var res executor.TaskResult
		if task.RunOnce {
			res = o.runOnce(ctx, i, task, host, v)
		} else {
			res = o.runTask(ctx, task, host, v)
		}

		if res.Status.Fatal() && task.IgnoreErrors {
			res.Ignored = true
		}
		report.add(res)
		log.Debug("task finished", "task", task.Name, "status", res.Status.String())

		if res.Status.Fatal() && !res.Ignored {
			if task.RunOnce {
				// Every other host depends on this work having happened.
				log.Error("run-once task failed, aborting run", "task", task.Name, "error", res.Msg)
				cancel()
			} else {
				log.Error("task failed, halting host", "task", task.Name, "error", res.Msg)
			}
			return
		}
	}
}

// runOnce executes a run-once task on the first host to reach it; later hosts
// block until it completed and observe the outcome. Observers report skipped,
// except when the single execution failed.
func (o *Orchestrator) runOnce(ctx context.Context, index int, task playbook.Task, host inventory.Host, v facts.View) executor.TaskResult {
	o.onceMu.Lock()
	run, ok := o.onceRuns[index]
	if !ok {
		run = &onceRun{}
		o.onceRuns[index] = run
	}
	o.onceMu.Unlock()

	executed := false
	run.once.Do(func() {
		executed = true
		run.res = o.runTask(ctx, task, host, v)
	})
	if executed {
		return run.res
	}

	if run.res.Status.Fatal() {
		return executor.TaskResult{
			Host: host.Name, Task: task.Name,
			Status: executor.StatusFailed,
			Msg:    fmt.Sprintf("run-once execution on %s failed", run.res.Host),
		}
	}
	return executor.TaskResult{
		Host: host.Name, Task: task.Name,
		Status: executor.StatusSkipped,
		Msg:    fmt.Sprintf("already run on %s", run.res.Host),
	}
}

// runTask resolves the executing runner (the host itself or its delegate) and
// dispatches the action. Facts always belong to the configured host, even
// under delegation.
func (o *Orchestrator) runTask(ctx context.Context, task playbook.Task, host inventory.Host, v facts.View) executor.TaskResult {
	target := host
	if task.DelegateTo != "" && task.DelegateTo != host.Name {
		delegate, ok := o.inv.HostByName(task.DelegateTo)
		if !ok {
			return executor.TaskResult{
				Host: host.Name, Task: task.Name,
				Status: executor.StatusFailed,
				Msg:    fmt.Sprintf("unknown delegate host %q", task.DelegateTo),
			}
		}
		target = delegate
	}

	runner, err := o.pool.get(ctx, target)
	if err != nil {
		return executor.TaskResult{
			Host: host.Name, Task: task.Name,
			Status: executor.StatusUnreachable,
			Msg:    err.Error(), Err: err,
		}
	}

	if hc, ok := task.Action.(playbook.HealthCheckAction); ok {
		return o.runHealthCheck(ctx, runner, task, hc, host, v)
	}
	res := executor.Apply(ctx, runner, task, v)
	// Attribute delegated work to the configured host.
	res.Host = host.Name
	return res
}

func (o *Orchestrator) runHealthCheck(ctx context.Context, runner executor.Runner, task playbook.Task, a playbook.HealthCheckAction, host inventory.Host, v facts.View) executor.TaskResult {
	res := executor.TaskResult{Host: host.Name, Task: task.Name}

	cfg, err := healthConfig(a, v)
	if err != nil {
		res.Status = executor.StatusFailed
		res.Msg = err.Error()
		res.Err = err
		return res
	}

	checker := health.New(runner, cfg)
	if err := checker.Check(ctx); err != nil {
		res.Status = executor.StatusFailed
		res.Msg = err.Error()
		res.Err = err
		return res
	}
	res.Status = executor.StatusOK
	res.Msg = checker.Phase().String()
	return res
}

// healthConfig expands the action's templates against the host's facts.
func healthConfig(a playbook.HealthCheckAction, v facts.View) (health.Config, error) {
	unit, err := v.Expand(a.Unit)
	if err != nil {
		return health.Config{}, err
	}
	url, err := v.Expand(a.URL)
	if err != nil {
		return health.Config{}, err
	}
	paths := make([]string, len(a.SocketPaths))
	for i, p := range a.SocketPaths {
		if paths[i], err = v.Expand(p); err != nil {
			return health.Config{}, err
		}
	}
	return health.Config{
		Unit:        unit,
		ProbeURL:    url,
		SocketPaths: paths,
		Retries:     a.Retries,
		Delay:       a.Delay(),
		Strict:      a.Strict,
	}, nil
}

// runnerPool lazily opens one connection per distinct host and shares it
// between the host's own tasks and work delegated to it.
type runnerPool struct {
	connect ConnectFunc

	mu      sync.Mutex
	runners map[string]executor.Runner
	errs    map[string]error
	closers []func() error
}

func newRunnerPool(connect ConnectFunc) *runnerPool {
	return &runnerPool{
		connect: connect,
		runners: make(map[string]executor.Runner),
		errs:    make(map[string]error),
	}
}

func (p *runnerPool) get(ctx context.Context, host inventory.Host) (executor.Runner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.runners[host.Name]; ok {
		return r, nil
	}
	if err, ok := p.errs[host.Name]; ok {
		return nil, err
	}

	r, closer, err := p.connect(ctx, host)
	if err != nil {
		err = fmt.Errorf("connect to %s: %w", host.Name, err)
		p.errs[host.Name] = err
		return nil, err
	}
	p.runners[host.Name] = r
	if closer != nil {
		p.closers = append(p.closers, closer)
	}
	return r, nil
}

func (p *runnerPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	p.closers = nil
	return errors.Join(errs...)
}
