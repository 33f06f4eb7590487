// Groups flat span lists into per-trace raw traces
// Inline span processes are collected into each trace's process map
package traceimport

import (
	"fmt"
	"strings"

	"github.com/andrewh/tracefold/pkg/trace"
)

// GroupSpans groups spans by trace ID, in order of first appearance.
// A span's inline Process is moved into its trace's process map: identical
// processes share one ID ("p1", "p2", ... per trace, in order of first use).
// Spans that already carry a ProcessID keep it.
func GroupSpans(spans []trace.RawSpan) []*trace.RawTrace {
	var order []*trace.RawTrace
	byTrace := make(map[string]*groupedTrace)

	for _, s := range spans {
		g, ok := byTrace[s.TraceID]
		if !ok {
			g = &groupedTrace{
				raw: &trace.RawTrace{
					TraceID:   s.TraceID,
					Processes: make(map[string]trace.Process),
				},
				processIDs: make(map[string]string),
			}
			byTrace[s.TraceID] = g
			order = append(order, g.raw)
		}
		g.add(s)
	}
	return order
}

type groupedTrace struct {
	raw        *trace.RawTrace
	processIDs map[string]string // process key -> process ID
}

func (g *groupedTrace) add(s trace.RawSpan) {
	if s.Process != nil && s.ProcessID == "" {
		key := processKey(s.Process)
		id, ok := g.processIDs[key]
		if !ok {
			id = fmt.Sprintf("p%d", len(g.processIDs)+1)
			g.processIDs[key] = id
			g.raw.Processes[id] = *s.Process
		}
		s.ProcessID = id
		s.Process = nil
	}
	g.raw.Spans = append(g.raw.Spans, s)
}

// processKey identifies a process by service name and tags, in tag order.
func processKey(p *trace.Process) string {
	var b strings.Builder
	b.WriteString(p.ServiceName)
	for _, t := range p.Tags {
		fmt.Fprintf(&b, "\x00%s=%v", t.Key, t.Value)
	}
	return b.String()
}
