package orchestrator

import (
	"sort"
	"sync"

	"github.com/eniac111/cephops/internal/executor"
)

// Counts aggregates task outcomes for one host.
type Counts struct {
	OK          int `json:"ok"`
	Changed     int `json:"changed"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Unreachable int `json:"unreachable"`
}

// Report collects per-host task results across a run. It is safe for
// concurrent appends.
type Report struct {
	mu      sync.Mutex
	results []executor.TaskResult
}

func (r *Report) add(res executor.TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Results returns every recorded result in completion order.
func (r *Report) Results() []executor.TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]executor.TaskResult(nil), r.results...)
}

// HostResults returns the results recorded for one host, in task order.
func (r *Report) HostResults(host string) []executor.TaskResult {
	var out []executor.TaskResult
	for _, res := range r.Results() {
		if res.Host == host {
			out = append(out, res)
		}
	}
	return out
}

// Hosts returns every host that produced at least one result, sorted.
func (r *Report) Hosts() []string {
	seen := make(map[string]struct{})
	for _, res := range r.Results() {
		seen[res.Host] = struct{}{}
	}
	hosts := make([]string, 0, len(seen))
	for h := range seen {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Summary tallies outcomes per host.
func (r *Report) Summary() map[string]Counts {
	out := make(map[string]Counts)
	for _, res := range r.Results() {
		c := out[res.Host]
		switch res.Status {
		case executor.StatusOK:
			c.OK++
		case executor.StatusChanged:
			c.Changed++
		case executor.StatusSkipped:
			c.Skipped++
		case executor.StatusFailed:
			c.Failed++
		case executor.StatusUnreachable:
			c.Unreachable++
		}
		out[res.Host] = c
	}
	return out
}

// Failed reports whether any host recorded a fatal result that was not
// explicitly ignored.
func (r *Report) Failed() bool {
	for _, res := range r.Results() {
		if res.Status.Fatal() && !res.Ignored {
			return true
		}
	}
	return false
}
