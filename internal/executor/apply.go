package executor

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/eniac111/cephops/internal/cephcmd"
	"github.com/eniac111/cephops/internal/facts"
	"github.com/eniac111/cephops/internal/playbook"
)

// Apply executes one task's action on the given runner, honoring the
// creates-guard: when the guard path already exists the action is a no-op
// success. Placeholder expansion uses the configured host's facts even when
// the runner belongs to a delegate.
func Apply(ctx context.Context, r Runner, t playbook.Task, v facts.View) TaskResult {
	res := TaskResult{Host: r.Host(), Task: t.Name}

	if t.Creates != "" {
		guard, err := v.Expand(t.Creates)
		if err != nil {
			return fail(res, err)
		}
		exists, err := r.Exists(ctx, guard)
		if err != nil {
			return unreachable(res, err)
		}
		if exists {
			res.Status = StatusOK
			res.Msg = fmt.Sprintf("%s already exists", guard)
			return res
		}
	}

	switch action := t.Action.(type) {
	case playbook.CommandAction:
		return applyCommand(ctx, r, res, action, v)
	case playbook.FileAction:
		return applyFile(ctx, r, res, action, v)
	case playbook.ServiceAction:
		return applyService(ctx, r, res, action, v)
	default:
		return fail(res, fmt.Errorf("module %q is not executable here", t.Action.Module()))
	}
}

func applyCommand(ctx context.Context, r Runner, res TaskResult, a playbook.CommandAction, v facts.View) TaskResult {
	cmd, err := v.Expand(a.Cmd)
	if err != nil {
		return fail(res, err)
	}

	out, err := r.Run(ctx, cmd)
	if err != nil {
		return unreachable(res, err)
	}
	if out.ExitCode != 0 {
		return fail(res, fmt.Errorf("command exited %d: %s", out.ExitCode, firstLine(out.Stderr)))
	}
	res.Status = StatusChanged
	res.Msg = firstLine(out.Stdout)
	return res
}

func applyFile(ctx context.Context, r Runner, res TaskResult, a playbook.FileAction, v facts.View) TaskResult {
	path, err := v.Expand(a.Path)
	if err != nil {
		return fail(res, err)
	}

	var changed bool
	switch a.State {
	case playbook.FileStateDirectory:
		changed, err = r.EnsureDir(ctx, path)
	case playbook.FileStateTouch:
		changed, err = r.EnsureFile(ctx, path)
	case playbook.FileStateAbsent:
		changed, err = r.RemoveAll(ctx, path)
	default:
		return fail(res, fmt.Errorf("unknown file state %q", a.State))
	}
	if err != nil {
		return unreachable(res, err)
	}

	if a.State != playbook.FileStateAbsent {
		mode, err := a.FileMode()
		if err != nil {
			return fail(res, err)
		}
		if mode != 0 {
			if err := r.Chmod(ctx, path, fs.FileMode(mode)); err != nil {
				return unreachable(res, err)
			}
		}
		if a.Owner != "" || a.Group != "" {
			if tr, ok := chown(ctx, r, res, path, a.Owner, a.Group); !ok {
				return tr
			}
		}
	}

	if changed {
		res.Status = StatusChanged
		res.Msg = fmt.Sprintf("%s is now %s", path, a.State)
	} else {
		res.Status = StatusOK
	}
	return res
}

// chown runs through the shell because SFTP only speaks numeric IDs and the
// inventory names accounts symbolically (ceph:ceph).
func chown(ctx context.Context, r Runner, res TaskResult, path, owner, group string) (TaskResult, bool) {
	who := owner
	if group != "" {
		who = owner + ":" + group
	}
	cmd := fmt.Sprintf("chown %s %s", cephcmd.ShellQuote(who), cephcmd.ShellQuote(path))
	out, err := r.Run(ctx, cmd)
	if err != nil {
		return unreachable(res, err), false
	}
	if out.ExitCode != 0 {
		return fail(res, fmt.Errorf("chown %s exited %d: %s", who, out.ExitCode, firstLine(out.Stderr))), false
	}
	return res, true
}

func applyService(ctx context.Context, r Runner, res TaskResult, a playbook.ServiceAction, v facts.View) TaskResult {
	unit, err := v.Expand(a.Unit)
	if err != nil {
		return fail(res, err)
	}

	var verb string
	switch a.State {
	case playbook.ServiceRestarted:
		verb = "restart"
	case playbook.ServiceStarted:
		verb = "start"
	case playbook.ServiceStopped:
		verb = "stop"
	default:
		return fail(res, fmt.Errorf("unknown service state %q", a.State))
	}

	cmd := fmt.Sprintf("systemctl %s %s", verb, cephcmd.ShellQuote(unit))
	out, err := r.Run(ctx, cmd)
	if err != nil {
		return unreachable(res, err)
	}
	if out.ExitCode != 0 {
		return fail(res, fmt.Errorf("systemctl %s %s exited %d: %s", verb, unit, out.ExitCode, firstLine(out.Stderr)))
	}
	res.Status = StatusChanged
	res.Msg = fmt.Sprintf("%s: %s", unit, a.State)
	return res
}

func fail(res TaskResult, err error) TaskResult {
	res.Status = StatusFailed
	res.Err = err
	res.Msg = err.Error()
	return res
}

func unreachable(res TaskResult, err error) TaskResult {
	res.Status = StatusUnreachable
	res.Err = err
	res.Msg = err.Error()
	return res
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
