package main

import (
	"context"

	"github.com/eniac111/cephops/internal/executor"
	"github.com/eniac111/cephops/internal/inventory"
	"github.com/eniac111/cephops/internal/sshconn"
)

// sshConnect opens the SSH transport for one inventory host. The orchestrator
// shares the connection between the host's own tasks and delegated work.
func sshConnect(ctx context.Context, h inventory.Host) (executor.Runner, func() error, error) {
	endpoint := h.Addr
	if endpoint == "" {
		endpoint = h.FQDN
	}
	if endpoint == "" {
		endpoint = h.Name
	}

	client, err := sshconn.Connect(ctx, sshconn.Config{
		Host:     endpoint,
		User:     h.User,
		Password: h.Password,
		Port:     h.Port,
		KeyPath:  h.KeyPath,
	})
	if err != nil {
		return nil, nil, err
	}
	return executor.NewSSH(client, h.Name), client.Close, nil
}
