package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eniac111/cephops/internal/logging"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	var debug bool

	if err := logging.Configure(logging.LevelWarn); err != nil {
		fmt.Fprintln(os.Stderr, "configure logger:", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "cephops",
		Short:         "Deploy and verify Ceph gateway services over SSH",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(applyCmd(), deployCmd(), planCmd(), healthCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
