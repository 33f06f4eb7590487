// Trace transformation CLI
// Reads Jaeger, OTLP or stdouttrace exports and prints normalised, time-ordered traces
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	s := &settings{}
	root := &cobra.Command{
		Use:          "tracefold",
		Short:        "Normalise and inspect distributed traces",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.configFile, "config", "", "config file (default ./tracefold.yaml or $HOME/.config/tracefold/tracefold.yaml)")
	pf.Bool("verbose", false, "log debug diagnostics to stderr")
	pf.String("format", "auto", "input format: auto, jaeger, otlp, or stdouttrace")
	pf.String("api", "", "Jaeger query API base URL (e.g. http://localhost:16686)")
	pf.String("trace-id", "", "trace to select; fetched from --api when set")

	root.AddCommand(transformCmd(s))
	root.AddCommand(treeCmd(s))
	root.AddCommand(summaryCmd(s))
	root.AddCommand(timelineCmd(s))
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tracefold %s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}
