// Package rgw carries the RADOS Gateway deployment conventions: keyring and
// control-socket locations, the systemd unit name, and the canned playbook
// that deploys and verifies a gateway fleet.
package rgw

import (
	"time"

	"github.com/eniac111/cephops/internal/cephcmd"
	"github.com/eniac111/cephops/internal/playbook"
)

// Filesystem and service conventions. Per-host values stay as {fact}
// placeholders and are expanded at execution time.
const (
	KeyringDirTemplate  = "/var/lib/ceph/radosgw/{cluster}-rgw.{hostname}"
	KeyringPathTemplate = KeyringDirTemplate + "/keyring"
	ServiceUnitTemplate = "ceph-radosgw@rgw.{hostname}"
	ProbeURLTemplate    = "http://{host_ip}:{frontend_port}"

	ServiceAccount = "ceph"
	KeyringMode    = "0600"
)

// SocketPathTemplates returns the control-socket candidates in probe order.
// The fqdn variant predates the hostname variant; both are still seen in the
// field, so the first existing one wins.
func SocketPathTemplates() []string {
	return []string{
		"/var/run/ceph/{cluster}-client.rgw.{fqdn}.asok",
		"/var/run/ceph/{cluster}-client.rgw.{hostname}.asok",
	}
}

// DefaultPools are the pools a gateway expects before it serves requests.
func DefaultPools() []string {
	return []string{".rgw.root", "default.rgw.control", "default.rgw.meta", "default.rgw.log"}
}

// DeployOptions parameterize the canned gateway playbook.
type DeployOptions struct {
	Cluster        string // cluster name, used for ceph CLI flags
	ContainerImage string // non-empty wraps ceph CLI calls in a container run
	MonitorHost    string // inventory host that runs the run-once pool setup
	Pools          []string
	Retries        int
	Delay          time.Duration
	Strict         bool // fail health checks when no probe tool exists
}

// DeployPlaybook builds the gateway deployment sequence: pools once on a
// monitor, then per host a keyring (created at most once), ownership and
// permissions, and a restart followed by mandatory verification.
func DeployPlaybook(opts DeployOptions) *playbook.Playbook {
	if opts.Pools == nil {
		opts.Pools = DefaultPools()
	}

	var tasks []playbook.Task

	for _, pool := range opts.Pools {
		tasks = append(tasks, playbook.Task{
			Name: "create pool " + pool,
			Action: playbook.CommandAction{
				Cmd: cephcmd.Line(cephcmd.PoolCreate(opts.Cluster, opts.ContainerImage, pool)),
			},
			RunOnce:    true,
			DelegateTo: opts.MonitorHost,
		})
	}

	tasks = append(tasks,
		playbook.Task{
			Name: "keyring directory",
			Action: playbook.FileAction{
				Path:  KeyringDirTemplate,
				State: playbook.FileStateDirectory,
				Owner: ServiceAccount,
				Group: ServiceAccount,
				Mode:  "0755",
			},
		},
		playbook.Task{
			Name: "create gateway keyring",
			Action: playbook.CommandAction{
				Cmd: cephcmd.Line(cephcmd.AuthGetOrCreate(
					opts.Cluster, opts.ContainerImage,
					"client.rgw.{hostname}", KeyringPathTemplate,
					"osd", "allow rwx", "mon", "allow rw",
				)),
			},
			Creates: KeyringPathTemplate,
		},
		playbook.Task{
			Name: "keyring ownership and permissions",
			Action: playbook.FileAction{
				Path:  KeyringPathTemplate,
				State: playbook.FileStateTouch,
				Owner: ServiceAccount,
				Group: ServiceAccount,
				Mode:  KeyringMode,
			},
		},
		playbook.Task{
			Name: "restart gateway and verify",
			Action: playbook.HealthCheckAction{
				Unit:        ServiceUnitTemplate,
				URL:         ProbeURLTemplate,
				SocketPaths: SocketPathTemplates(),
				Retries:     opts.Retries,
				DelaySecs:   int(opts.Delay / time.Second),
				Strict:      opts.Strict,
			},
			// Containerized gateways are not driven through systemd units;
			// their restart belongs to the container runtime.
			When: &playbook.Clause{Cond: playbook.Not{Cond: playbook.Truthy{Fact: "containerized"}}},
		},
	)

	return &playbook.Playbook{
		Name:  "deploy rados gateways",
		Hosts: "gateways",
		Tasks: tasks,
	}
}
