package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/andrewh/tracefold/pkg/trace"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func transformCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform [file | URL | -]",
		Short: "Print transformed traces as JSON or YAML",
		Long: "Reads a trace export, reassembles each trace into time-ordered traversal\n" +
			"order, and prints the enriched traces.\n\n" +
			"The source can be a file path, an HTTP/HTTPS URL, or - for stdin (the default).\n" +
			"URL fetches have a 10-second timeout and a 10 MB response body limit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traces, err := loadTraces(cmd, args, s)
			if err != nil {
				return err
			}
			return writeTraces(cmd.OutOrStdout(), traces, s.v.GetString("output"), s.v.GetInt("indent"))
		},
	}

	cmd.Flags().StringP("output", "o", "json", "output format: json or yaml")
	cmd.Flags().Int("indent", 2, "indentation width (0 for compact JSON)")

	return cmd
}

func writeTraces(w io.Writer, traces []*trace.Trace, output string, indent int) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		if indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", indent))
		}
		return enc.Encode(traces)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(max(indent, 2))
		if err := enc.Encode(traces); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, valid formats: json, yaml", output)
	}
}
