package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eniac111/cephops/cmd/cephops/ui"
	"github.com/eniac111/cephops/internal/health"
	"github.com/eniac111/cephops/internal/inventory"
	"github.com/eniac111/cephops/internal/rgw"
)

func healthCmd() *cobra.Command {
	var (
		inventoryPath string
		retries       int
		delay         time.Duration
		strict        bool
	)

	cmd := &cobra.Command{
		Use:   "health <host>",
		Short: "Restart one gateway and verify it came back",
		Long: `Health restarts the gateway daemon on the named inventory host, waits
for its control socket, and probes its HTTP frontend. Exit status is 0
when the daemon is verified (or cannot be verified for lack of a probe
tool), 1 when a socket or HTTP poll budget is exhausted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}
			host, ok := inv.HostByName(args[0])
			if !ok {
				return fmt.Errorf("host %q is not in the inventory", args[0])
			}
			v := inv.FactsFor(host)

			unit, err := v.Expand(rgw.ServiceUnitTemplate)
			if err != nil {
				return err
			}
			url, err := v.Expand(rgw.ProbeURLTemplate)
			if err != nil {
				return err
			}
			sockets := make([]string, 0, 2)
			for _, tpl := range rgw.SocketPathTemplates() {
				sock, err := v.Expand(tpl)
				if err != nil {
					return err
				}
				sockets = append(sockets, sock)
			}

			runner, closer, err := sshConnect(cmd.Context(), host)
			if err != nil {
				return err
			}
			defer closer()

			checker := health.New(runner, health.Config{
				Unit:        unit,
				ProbeURL:    url,
				SocketPaths: sockets,
				Retries:     retries,
				Delay:       delay,
				Strict:      strict,
			})
			if err := checker.Check(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", host.Name, err)
			}

			fmt.Fprintln(os.Stdout, ui.SuccessStyle.Render("✓")+" "+host.Name+" "+checker.Phase().String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "inventory.yaml", "Inventory file")
	cmd.Flags().IntVar(&retries, "retries", 5, "Poll attempts for socket and HTTP checks")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "Delay between polls")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when no HTTP probe tool is installed")
	return cmd
}
