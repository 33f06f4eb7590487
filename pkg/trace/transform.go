// Trace transformation: reassembles a flat span list into a time-ordered tree,
// annotates each span, and derives the trace summary
package trace

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/andrewh/tracefold/pkg/spantree"
)

// ErrUnknownRefType is returned when a span's primary reference is neither
// CHILD_OF nor FOLLOWS_FROM.
var ErrUnknownRefType = errors.New("unrecognized ref type")

// rootIndex is the value held by the synthetic tree root.
const rootIndex = -1

// Transform converts a raw trace into a normalised Trace.
//
// The input is not modified. A raw trace without a trace ID yields a nil
// Trace and a nil error. Spans with a zero start time are dropped. Duplicate
// span IDs are renamed to "<id>_<n>"; references keep naming the original ID
// and so resolve to its first occurrence. Spans whose primary parent is not in
// the trace are placed at the top level. Siblings with equal start times keep
// their input order.
func Transform(raw *RawTrace) (*Trace, error) {
	if raw == nil || raw.TraceID == "" {
		return nil, nil
	}
	traceID := strings.ToLower(raw.TraceID)

	processes := make(map[string]*Process, len(raw.Processes))
	for id, p := range raw.Processes {
		processes[id] = &Process{ServiceName: p.ServiceName, Tags: cloneOrEmpty(p.Tags)}
	}

	spans, byID, start, end := prepare(raw.Spans, processes)

	tree, err := buildTree(spans, byID)
	if err != nil {
		return nil, err
	}

	ordered := make([]*Span, 0, len(spans))
	tree.Walk(func(idx int, node *spantree.Node[int], depth int) {
		if idx == rootIndex {
			return
		}
		s := spans[idx]
		s.Depth = depth - 1
		s.HasChildren = node.Len() > 0
		s.RelativeStartTime = s.StartTime - start

		tags, warnings := DeduplicateTags(s.Tags)
		s.Tags = tags
		s.Warnings = append(s.Warnings, warnings...)

		ordered = append(ordered, s)
	})

	annotateBackReferences(ordered, byID, traceID)

	return &Trace{
		TraceID:   traceID,
		Processes: processes,
		Spans:     ordered,
		StartTime: start,
		EndTime:   end,
		Duration:  end - start,
		TraceName: TraceName(ordered),
		Services:  countServices(ordered),
		Warnings:  slices.Clone(raw.Warnings),
		byID:      byID,
	}, nil
}

// prepare copies the surviving spans, renames duplicate IDs, resolves
// processes, and computes the trace time bounds.
func prepare(raw []RawSpan, processes map[string]*Process) ([]*Span, map[string]*Span, int64, int64) {
	spans := make([]*Span, 0, len(raw))
	byID := make(map[string]*Span, len(raw))
	idCounts := make(map[string]int)

	var start, end int64
	for i := range raw {
		rs := &raw[i]
		if rs.StartTime == 0 {
			continue
		}
		s := copySpan(rs)
		s.Process = resolveProcess(rs, processes)

		if len(spans) == 0 || s.StartTime < start {
			start = s.StartTime
		}
		if len(spans) == 0 || s.EndTime() > end {
			end = s.EndTime()
		}

		if n, seen := idCounts[s.SpanID]; seen {
			idCounts[s.SpanID] = n + 1
			s.SpanID = fmt.Sprintf("%s_%d", s.SpanID, n)
		} else {
			idCounts[s.SpanID] = 1
		}
		byID[s.SpanID] = s
		spans = append(spans, s)
	}
	return spans, byID, start, end
}

func resolveProcess(rs *RawSpan, processes map[string]*Process) *Process {
	if p, ok := processes[rs.ProcessID]; ok {
		return p
	}
	if rs.Process == nil {
		return nil
	}
	// Inline process: register it so later spans with the same ID share it
	p := &Process{ServiceName: rs.Process.ServiceName, Tags: cloneOrEmpty(rs.Process.Tags)}
	if rs.ProcessID != "" {
		processes[rs.ProcessID] = p
	}
	return p
}

func copySpan(rs *RawSpan) *Span {
	logs := make([]Log, len(rs.Logs))
	for i, l := range rs.Logs {
		logs[i] = Log{Timestamp: l.Timestamp, Fields: cloneOrEmpty(l.Fields)}
	}
	return &Span{
		TraceID:       rs.TraceID,
		SpanID:        rs.SpanID,
		OperationName: rs.OperationName,
		ProcessID:     rs.ProcessID,
		StartTime:     rs.StartTime,
		Duration:      rs.Duration,
		References:    cloneOrEmpty(rs.References),
		Tags:          cloneOrEmpty(rs.Tags),
		Logs:          logs,
		Warnings:      cloneOrEmpty(rs.Warnings),
	}
}

// buildTree links every span under its primary parent, or under the synthetic
// root when it has no references or the parent is unknown. Tree values are
// indexes into spans.
func buildTree(spans []*Span, byID map[string]*Span) (*spantree.Node[int], error) {
	index := make(map[*Span]int, len(spans))
	for i, s := range spans {
		index[s] = i
	}

	parents := make([]int, len(spans))
	for i, s := range spans {
		parents[i] = rootIndex
		if len(s.References) == 0 {
			continue
		}
		ref := s.References[0]
		if !ref.RefType.Valid() {
			return nil, fmt.Errorf("span %s: %w %q", s.SpanID, ErrUnknownRefType, ref.RefType)
		}
		if parent, ok := byID[ref.SpanID]; ok {
			parents[i] = index[parent]
		}
	}
	breakCycles(spans, parents)

	root := spantree.New(rootIndex)
	nodes := make([]*spantree.Node[int], len(spans))
	for i := range spans {
		nodes[i] = spantree.New(i)
	}
	for i, p := range parents {
		if p == rootIndex {
			root.AddChild(nodes[i])
		} else {
			nodes[p].AddChild(nodes[i])
		}
	}

	byStart := func(a, b int) int {
		return cmp.Compare(spans[a].StartTime, spans[b].StartTime)
	}
	for _, n := range nodes {
		n.SortChildren(byStart)
	}
	root.SortChildren(byStart)
	return root, nil
}

// breakCycles reattaches one span of every primary-parent cycle to the root
// so that all spans stay reachable. The span with the lowest input index in
// the cycle is the one moved, and it gets a warning.
func breakCycles(spans []*Span, parents []int) {
	const (
		unvisited = iota
		inPath
		done
	)
	state := make([]int, len(parents))
	var path []int
	for i := range parents {
		path = path[:0]
		cur := i
		for cur != rootIndex && state[cur] == unvisited {
			state[cur] = inPath
			path = append(path, cur)
			cur = parents[cur]
		}
		if cur != rootIndex && state[cur] == inPath {
			cycleStart := slices.Index(path, cur)
			moved := slices.Min(path[cycleStart:])
			parents[moved] = rootIndex
			s := spans[moved]
			s.Warnings = append(s.Warnings, fmt.Sprintf("Reference cycle through span %q; attached at top level", s.SpanID))
		}
		for _, p := range path {
			state[p] = done
		}
	}
}

// annotateBackReferences records, on each span named by a non-primary
// reference, which span referenced it. Back-references carry the trace's
// normalised ID.
func annotateBackReferences(spans []*Span, byID map[string]*Span, traceID string) {
	for _, s := range spans {
		for i, ref := range s.References {
			if i == 0 {
				continue
			}
			target, ok := byID[ref.SpanID]
			if !ok {
				continue
			}
			target.SubsidiarilyReferencedBy = append(target.SubsidiarilyReferencedBy, BackReference{
				RefType: ref.RefType,
				SpanID:  s.SpanID,
				TraceID: traceID,
			})
		}
	}
}

// countServices counts spans per service in order of first appearance.
func countServices(spans []*Span) []ServiceCount {
	services := make([]ServiceCount, 0)
	position := make(map[string]int)
	for _, s := range spans {
		name := s.ServiceName()
		i, ok := position[name]
		if !ok {
			i = len(services)
			position[name] = i
			services = append(services, ServiceCount{Name: name})
		}
		services[i].NumberOfSpans++
	}
	return services
}

func cloneOrEmpty[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return slices.Clone(s)
}
