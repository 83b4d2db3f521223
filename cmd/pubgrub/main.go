// Command pubgrub resolves package version requirements against either a
// TOML universe file or a remote registry, printing the selected versions or
// the conflict explanation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbosity int
	log       = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:           "pubgrub",
		Short:         "PubGrub version solving",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			switch {
			case verbosity >= 2:
				log.SetLevel(logrus.TraceLevel)
			case verbosity == 1:
				log.SetLevel(logrus.DebugLevel)
			default:
				log.SetLevel(logrus.WarnLevel)
			}
			log.SetOutput(os.Stderr)
		},
	}
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase logging verbosity")
	root.AddCommand(newResolveCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
