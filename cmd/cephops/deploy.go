package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eniac111/cephops/cmd/cephops/ui"
	"github.com/eniac111/cephops/internal/cephcmd"
	"github.com/eniac111/cephops/internal/inventory"
	"github.com/eniac111/cephops/internal/orchestrator"
	"github.com/eniac111/cephops/internal/rgw"
)

func deployCmd() *cobra.Command {
	var (
		inventoryPath string
		monitorHost   string
		image         string
		pools         []string
		fanout        int
		retries       int
		delay         time.Duration
		strict        bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy and verify the rados gateway fleet",
		Long: `Deploy runs the built-in gateway playbook: pools once on a monitor,
then per gateway host a keyring, ownership and permissions, and a
restart followed by verification.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}

			if monitorHost == "" {
				monitors := inv.Group("monitors")
				if len(monitors) == 0 {
					return fmt.Errorf("no --monitor given and no hosts in group %q", "monitors")
				}
				monitorHost = monitors[0].Name
			}
			if _, ok := inv.HostByName(monitorHost); !ok {
				return fmt.Errorf("monitor host %q is not in the inventory", monitorHost)
			}

			pb := rgw.DeployPlaybook(rgw.DeployOptions{
				Cluster:        inv.Cluster,
				ContainerImage: image,
				MonitorHost:    monitorHost,
				Pools:          pools,
				Retries:        retries,
				Delay:          delay,
				Strict:         strict,
			})

			o := orchestrator.New(inv, sshConnect, orchestrator.WithFanOut(fanout))
			report, err := o.Run(cmd.Context(), pb)
			if err != nil {
				return err
			}

			ui.RenderReport(os.Stdout, report)
			if report.Failed() {
				return fmt.Errorf("deploy failed on at least one host")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "inventory.yaml", "Inventory file")
	cmd.Flags().StringVar(&monitorHost, "monitor", "", "Host that runs the one-time pool setup (default: first of group monitors)")
	cmd.Flags().StringVar(&image, "image", cephcmd.ContainerImage(), "Ceph container image for containerized clusters")
	cmd.Flags().StringSliceVar(&pools, "pool", nil, "Pools to create (default: the standard gateway pools)")
	cmd.Flags().IntVar(&fanout, "fan-out", orchestrator.DefaultFanOut, "Hosts configured in parallel")
	cmd.Flags().IntVar(&retries, "retries", 5, "Health check poll attempts")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "Delay between health check polls")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail verification when no HTTP probe tool is installed")
	return cmd
}
