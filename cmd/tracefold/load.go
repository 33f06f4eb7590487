package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrewh/tracefold/pkg/trace"
	"github.com/andrewh/tracefold/pkg/traceimport"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// loadTraces reads and transforms the traces named by args and the settings.
// With --api and --trace-id the trace is fetched from the query API;
// otherwise args[0] (or stdin) is read. Traces that fail to transform are
// logged and skipped, unless none succeed.
func loadTraces(cmd *cobra.Command, args []string, s *settings) ([]*trace.Trace, error) {
	source := "-"
	if len(args) == 1 {
		source = args[0]
	}
	if s.api != "" {
		if len(args) == 1 {
			return nil, fmt.Errorf("--api and a source argument are mutually exclusive")
		}
		u, err := traceimport.TraceURL(s.api, s.traceID)
		if err != nil {
			return nil, err
		}
		source = u
	}

	s.log.Debug().Str("source", source).Str("format", s.format).Msg("reading traces")
	traces, err := traceimport.Load(cmd.Context(), source, cmd.InOrStdin(), traceimport.Options{
		Format:   traceimport.Format(s.format),
		Warnings: cmd.ErrOrStderr(),
	})
	if errors.Is(err, traceimport.ErrNoTraces) {
		return nil, fmt.Errorf("%w\n\nProvide a file, URL, or pipe stdin:\n  tracefold tree trace.json\n  cat trace.json | tracefold tree", err)
	}
	if err != nil && len(traces) == 0 {
		return nil, err
	}
	// Every trace lacked an ID and was skipped
	if len(traces) == 0 {
		return nil, traceimport.ErrNoTraces
	}
	for _, e := range multierr.Errors(err) {
		s.log.Warn().Err(e).Msg("skipping trace")
	}

	if s.traceID != "" {
		traces = selectTrace(traces, s.traceID)
		if len(traces) == 0 {
			return nil, fmt.Errorf("trace %s not found in input", s.traceID)
		}
	}
	s.log.Debug().Int("traces", len(traces)).Msg("transformed traces")
	return traces, nil
}

func selectTrace(traces []*trace.Trace, id string) []*trace.Trace {
	for _, tr := range traces {
		if strings.EqualFold(tr.TraceID, id) {
			return []*trace.Trace{tr}
		}
	}
	return nil
}
