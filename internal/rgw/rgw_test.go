package rgw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/cephops/internal/facts"
	"github.com/eniac111/cephops/internal/playbook"
)

func TestTemplatesExpand(t *testing.T) {
	v := facts.New(map[string]string{
		"cluster":       "ceph",
		"hostname":      "rgw0",
		"fqdn":          "rgw0.example.com",
		"host_ip":       "10.0.0.10",
		"frontend_port": "8080",
	})

	keyring, err := v.Expand(KeyringPathTemplate)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ceph/radosgw/ceph-rgw.rgw0/keyring", keyring)

	unit, err := v.Expand(ServiceUnitTemplate)
	require.NoError(t, err)
	assert.Equal(t, "ceph-radosgw@rgw.rgw0", unit)

	url, err := v.Expand(ProbeURLTemplate)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.10:8080", url)

	socks := SocketPathTemplates()
	require.Len(t, socks, 2)
	first, err := v.Expand(socks[0])
	require.NoError(t, err)
	second, err := v.Expand(socks[1])
	require.NoError(t, err)
	assert.Equal(t, "/var/run/ceph/ceph-client.rgw.rgw0.example.com.asok", first, "fqdn variant probed first")
	assert.Equal(t, "/var/run/ceph/ceph-client.rgw.rgw0.asok", second)
}

func TestDeployPlaybook(t *testing.T) {
	pb := DeployPlaybook(DeployOptions{
		Cluster:     "ceph",
		MonitorHost: "mon0",
		Retries:     3,
		Delay:       time.Second,
	})
	require.NoError(t, pb.Validate())
	assert.Equal(t, "gateways", pb.Hosts)

	var poolTasks, runOnce int
	for _, task := range pb.Tasks {
		if cmd, ok := task.Action.(playbook.CommandAction); ok && task.RunOnce {
			poolTasks++
			assert.Equal(t, "mon0", task.DelegateTo)
			assert.Contains(t, cmd.Cmd, "osd pool create")
		}
		if task.RunOnce {
			runOnce++
		}
	}
	assert.Equal(t, len(DefaultPools()), poolTasks)
	assert.Equal(t, poolTasks, runOnce)

	// Keyring creation is guarded so it happens at most once per host.
	keyring := taskNamed(t, pb, "create gateway keyring")
	assert.Equal(t, KeyringPathTemplate, keyring.Creates)
	cmd := keyring.Action.(playbook.CommandAction)
	assert.Contains(t, cmd.Cmd, "auth get-or-create")
	assert.NotContains(t, cmd.Cmd, "--cluster", "default cluster name adds no flag")

	perms := taskNamed(t, pb, "keyring ownership and permissions")
	file := perms.Action.(playbook.FileAction)
	assert.Equal(t, ServiceAccount, file.Owner)
	assert.Equal(t, KeyringMode, file.Mode)

	verify := taskNamed(t, pb, "restart gateway and verify")
	hc := verify.Action.(playbook.HealthCheckAction)
	assert.Equal(t, SocketPathTemplates(), hc.SocketPaths)
	assert.Equal(t, 3, hc.Retries)
	require.NotNil(t, verify.When)
	assert.True(t, verify.When.Eval(facts.New(map[string]string{"containerized": "false"})))
	assert.False(t, verify.When.Eval(facts.New(map[string]string{"containerized": "true"})))
}

func TestDeployPlaybookContainerized(t *testing.T) {
	pb := DeployPlaybook(DeployOptions{
		Cluster:        "prod",
		ContainerImage: "quay.io/ceph/ceph:v18",
		MonitorHost:    "mon0",
	})

	keyring := taskNamed(t, pb, "create gateway keyring")
	cmd := keyring.Action.(playbook.CommandAction)
	assert.Contains(t, cmd.Cmd, "docker run")
	assert.Contains(t, cmd.Cmd, "--cluster prod")
}

func taskNamed(t *testing.T, pb *playbook.Playbook, name string) playbook.Task {
	t.Helper()
	for _, task := range pb.Tasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("no task named %q", name)
	return playbook.Task{}
}
