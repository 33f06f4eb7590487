// Package traceimport decodes trace exports into raw traces and runs them
// through trace.Transform. Sources can be files, stdin, or HTTP URLs such as a
// Jaeger query API.
package traceimport

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/andrewh/tracefold/pkg/trace"
	"go.uber.org/multierr"
)

// Options controls import behaviour.
type Options struct {
	Format   Format
	Warnings io.Writer // defaults to os.Stderr
}

// Import reads raw traces from r and transforms each one.
// A trace that fails to transform does not stop the others: the successful
// traces are returned together with the combined error of the failures.
// Traces without an ID are skipped with a warning.
func Import(r io.Reader, opts Options) ([]*trace.Trace, error) {
	if opts.Warnings == nil {
		opts.Warnings = os.Stderr
	}

	raws, err := ParseTraces(r, opts.Format)
	if err != nil {
		return nil, err
	}
	return TransformAll(raws, opts.Warnings)
}

// Load opens source with Open and imports it. stdin serves "" and "-".
func Load(ctx context.Context, source string, stdin io.Reader, opts Options) ([]*trace.Trace, error) {
	rc, err := Open(ctx, source, stdin)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // best-effort close on read
	return Import(rc, opts)
}

// TransformAll transforms each raw trace, writing per-span warnings to w (may be nil).
func TransformAll(raws []*trace.RawTrace, w io.Writer) ([]*trace.Trace, error) {
	traces := make([]*trace.Trace, 0, len(raws))
	var errs error
	for i, raw := range raws {
		tr, err := trace.Transform(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("trace %s: %w", raw.TraceID, err))
			continue
		}
		if tr == nil {
			warnf(w, "warning: trace %d in input has no trace ID, skipping\n", i+1)
			continue
		}
		for _, s := range tr.Spans {
			for _, msg := range s.Warnings {
				warnf(w, "warning: trace %s span %s: %s\n", tr.TraceID, s.SpanID, msg)
			}
		}
		traces = append(traces, tr)
	}
	return traces, errs
}

func warnf(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, args...)
	}
}
