package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/eniac111/cephops/internal/facts"
	"github.com/eniac111/cephops/internal/inventory"
	"github.com/eniac111/cephops/internal/playbook"
)

// planHost is one host's resolved slice of the run manifest.
type planHost struct {
	Host  string     `json:"host"`
	Tasks []planTask `json:"tasks"`
}

type planTask struct {
	Name       string `json:"name"`
	Module     string `json:"module"`
	Action     string `json:"action"`
	RunOnce    bool   `json:"run_once,omitempty"`
	DelegateTo string `json:"delegate_to,omitempty"`
	Creates    string `json:"creates,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"` // condition not met for this host
}

func planCmd() *cobra.Command {
	var (
		inventoryPath string
		playbookPath  string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Render the resolved per-host task manifest without touching any host",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}
			pb, err := playbook.Load(playbookPath)
			if err != nil {
				return err
			}

			manifest, err := buildPlan(inv, pb)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(manifest)
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "inventory.yaml", "Inventory file")
	cmd.Flags().StringVarP(&playbookPath, "playbook", "p", "playbook.yaml", "Playbook file")
	return cmd
}

// buildPlan resolves each task's description against every selected host's
// facts. An undefined fact is surfaced here rather than mid-run.
func buildPlan(inv *inventory.Inventory, pb *playbook.Playbook) ([]planHost, error) {
	hosts := inv.Group(pb.Hosts)
	manifest := make([]planHost, 0, len(hosts))

	for _, h := range hosts {
		v := inv.FactsFor(h)
		entry := planHost{Host: h.Name}
		for _, task := range pb.Tasks {
			pt, err := resolveTask(task, v)
			if err != nil {
				return nil, err
			}
			entry.Tasks = append(entry.Tasks, pt)
		}
		manifest = append(manifest, entry)
	}
	return manifest, nil
}

func resolveTask(task playbook.Task, v facts.View) (planTask, error) {
	pt := planTask{
		Name:       task.Name,
		Module:     task.Action.Module(),
		RunOnce:    task.RunOnce,
		DelegateTo: task.DelegateTo,
		Skipped:    !task.ShouldRun(v),
	}

	action, err := v.Expand(task.Action.Describe())
	if err != nil {
		return planTask{}, err
	}
	pt.Action = action

	if task.Creates != "" {
		if pt.Creates, err = v.Expand(task.Creates); err != nil {
			return planTask{}, err
		}
	}
	return pt, nil
}
