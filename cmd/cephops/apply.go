package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eniac111/cephops/cmd/cephops/ui"
	"github.com/eniac111/cephops/internal/inventory"
	"github.com/eniac111/cephops/internal/orchestrator"
	"github.com/eniac111/cephops/internal/playbook"
)

func applyCmd() *cobra.Command {
	var (
		inventoryPath string
		playbookPath  string
		fanout        int
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run a playbook against the inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}
			pb, err := playbook.Load(playbookPath)
			if err != nil {
				return err
			}

			o := orchestrator.New(inv, sshConnect, orchestrator.WithFanOut(fanout))
			report, err := o.Run(cmd.Context(), pb)
			if err != nil {
				return err
			}

			ui.RenderReport(os.Stdout, report)
			if report.Failed() {
				return fmt.Errorf("playbook failed on at least one host")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "inventory.yaml", "Inventory file")
	cmd.Flags().StringVarP(&playbookPath, "playbook", "p", "playbook.yaml", "Playbook file")
	cmd.Flags().IntVar(&fanout, "fan-out", orchestrator.DefaultFanOut, "Hosts configured in parallel")
	return cmd
}
