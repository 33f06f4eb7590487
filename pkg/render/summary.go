// Tabular trace summary: identity, timing and per-service span counts
package render

import (
	"fmt"
	"io"

	"github.com/andrewh/tracefold/pkg/trace"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary writes a table describing tr to w: trace name, ID, duration, and
// one row per service with its span count and display colour. Pass the same
// generator for every trace of a run to keep service colours stable across
// tables; nil uses a fresh one.
func Summary(w io.Writer, tr *trace.Trace, colors *trace.ColorGenerator) error {
	if tr == nil {
		return fmt.Errorf("no trace to summarise")
	}
	if colors == nil {
		colors = trace.NewColorGenerator()
	}
	serviceColors := colors.ServiceColors(tr)

	warnings := len(tr.Warnings)
	for _, s := range tr.Spans {
		warnings += len(s.Warnings)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("%s (%s, %s, %d warnings)", tr.TraceName, tr.TraceID, FormatDuration(tr.Duration), warnings)
	tw.AppendHeader(table.Row{"Service", "Spans", "Colour"})
	for _, svc := range tr.Services {
		tw.AppendRow(table.Row{svc.Name, svc.NumberOfSpans, serviceColors[svc.Name]})
	}
	tw.AppendFooter(table.Row{"Total", len(tr.Spans), ""})

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}
