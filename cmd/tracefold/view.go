package main

import (
	"fmt"
	"os"

	"github.com/andrewh/tracefold/pkg/render"
	"github.com/andrewh/tracefold/pkg/trace"
	"github.com/spf13/cobra"
)

func treeCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [file | URL | -]",
		Short: "Print an ASCII waterfall of each trace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traces, err := loadTraces(cmd, args, s)
			if err != nil {
				return err
			}
			opts := render.TreeOptions{
				Width:    s.v.GetInt("width"),
				Focus:    s.v.GetString("focus"),
				MaxSpans: s.v.GetInt("max-spans"),
			}
			out := cmd.OutOrStdout()
			for i, tr := range traces {
				if i > 0 {
					_, _ = fmt.Fprintln(out)
				}
				if err := render.Tree(out, tr, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("width", 100, "total line width")
	cmd.Flags().String("focus", "", "only show the subtree rooted at this span ID")
	cmd.Flags().Int("max-spans", 0, "maximum rows per trace (0 = no limit)")

	return cmd
}

func summaryCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [file | URL | -]",
		Short: "Print a per-service summary table of each trace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traces, err := loadTraces(cmd, args, s)
			if err != nil {
				return err
			}
			colors := trace.NewColorGenerator()
			for _, tr := range traces {
				if err := render.Summary(cmd.OutOrStdout(), tr, colors); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func timelineCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline [file | URL | -]",
		Short: "Render a trace as an SVG timeline",
		Long: "Render a trace as an SVG timeline, one bar per span coloured by service.\n\n" +
			"Only one trace is rendered; use --trace-id to pick it when the input holds several.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traces, err := loadTraces(cmd, args, s)
			if err != nil {
				return err
			}
			if len(traces) > 1 {
				s.log.Warn().Int("traces", len(traces)).Str("rendered", traces[0].TraceID).Msg("input holds several traces, rendering the first")
			}

			output := s.v.GetString("out")
			if output == "" || output == "-" {
				return render.Timeline(cmd.OutOrStdout(), traces[0], s.v.GetString("title"))
			}

			f, err := os.Create(output) //nolint:gosec // user-supplied output path is expected
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			if err := render.Timeline(f, traces[0], s.v.GetString("title")); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			s.log.Info().Str("file", output).Int("spans", len(traces[0].Spans)).Msg("wrote timeline")
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "-", "output SVG file (- for stdout)")
	cmd.Flags().String("title", "", "chart title (default: trace name)")

	return cmd
}
