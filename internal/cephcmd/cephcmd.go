// Package cephcmd assembles ceph CLI invocations for remote execution,
// wrapping them in a container runtime call when the deployment is
// containerized.
package cephcmd

import (
	"os"
	"strings"
)

// ContainerImageEnv names the environment variable that marks a containerized
// cluster and carries the image reference.
const ContainerImageEnv = "CEPH_CONTAINER_IMAGE"

// ContainerImage returns the configured ceph container image, or "" on a
// bare-metal cluster.
func ContainerImage() string {
	return os.Getenv(ContainerImageEnv)
}

// containerExec builds the docker CLI prefix to run a ceph binary inside a
// container, with the canonical host mounts.
func containerExec(binary, image string) []string {
	return []string{
		"docker", "run", "--rm", "--privileged", "--net=host",
		"-v", "/run/lock/lvm:/run/lock/lvm:z",
		"-v", "/dev:/dev",
		"-v", "/etc/ceph:/etc/ceph:z",
		"-v", "/run/lvm/lvmetad.socket:/run/lvm/lvmetad.socket",
		"-v", "/var/lib/ceph/:/var/lib/ceph/:z",
		"--entrypoint=" + binary,
		image,
	}
}

// Build assembles a ceph command line. When image is non-empty the binary is
// wrapped in a container invocation; the --cluster flag is injected for
// non-default cluster names.
func Build(binary, cluster, image string, args ...string) []string {
	var cmd []string
	if image != "" {
		cmd = containerExec(binary, image)
	} else {
		cmd = []string{binary}
	}
	if cluster != "" && cluster != "ceph" {
		cmd = append(cmd, "--cluster", cluster)
	}
	return append(cmd, args...)
}

// Line renders argv as a shell command line with each argument quoted.
func Line(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// ShellQuote single-quotes s for safe interpolation into a shell command.
func ShellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>(){}*?#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// AuthGetOrCreate builds the keyring-creation command for a named identity
// with the given capability pairs, writing the keyring to outPath.
func AuthGetOrCreate(cluster, image, entity, outPath string, caps ...string) []string {
	args := append([]string{"auth", "get-or-create", entity}, caps...)
	args = append(args, "-o", outPath)
	return Build("ceph", cluster, image, args...)
}

// PoolCreate builds the pool-creation command.
func PoolCreate(cluster, image, pool string) []string {
	return Build("ceph", cluster, image, "osd", "pool", "create", pool)
}
