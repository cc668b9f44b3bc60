package cephcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildBareMetal(t *testing.T) {
	cmd := Build("ceph", "ceph", "", "auth", "list")
	assert.Equal(t, []string{"ceph", "auth", "list"}, cmd, "default cluster adds no flag")
}

func TestBuildCustomCluster(t *testing.T) {
	cmd := Build("ceph", "prod", "", "status")
	assert.Equal(t, []string{"ceph", "--cluster", "prod", "status"}, cmd)
}

func TestBuildContainerized(t *testing.T) {
	cmd := Build("ceph-volume", "ceph", "quay.io/ceph/ceph:v18", "lvm", "list")

	assert.Equal(t, "docker", cmd[0])
	assert.Contains(t, cmd, "--privileged")
	assert.Contains(t, cmd, "--net=host")
	assert.Contains(t, cmd, "--entrypoint=ceph-volume")
	assert.Contains(t, cmd, "quay.io/ceph/ceph:v18")
	assert.Equal(t, []string{"lvm", "list"}, cmd[len(cmd)-2:])
}

func TestAuthGetOrCreate(t *testing.T) {
	cmd := AuthGetOrCreate("ceph", "", "client.rgw.rgw0",
		"/var/lib/ceph/radosgw/ceph-rgw.rgw0/keyring",
		"osd", "allow rwx", "mon", "allow rw")

	line := Line(cmd)
	assert.Contains(t, line, "auth get-or-create client.rgw.rgw0")
	assert.Contains(t, line, "'allow rwx'")
	assert.Contains(t, line, "-o /var/lib/ceph/radosgw/ceph-rgw.rgw0/keyring")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain", ShellQuote("plain"))
	assert.Equal(t, "'two words'", ShellQuote("two words"))
	assert.Equal(t, `'it'"'"'s'`, ShellQuote("it's"))
	assert.Equal(t, "''", ShellQuote(""))
}
