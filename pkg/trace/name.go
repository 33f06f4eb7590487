package trace

import "strings"

// TraceName names a trace after its most root-like span as
// "<service>: <operation>". A span is a candidate when none of its references
// point at a span in this trace; among candidates the one with the fewest
// references wins, then the earliest start. Returns "" if there is no candidate.
func TraceName(spans []*Span) string {
	ids := make(map[string]bool, len(spans))
	for _, s := range spans {
		ids[s.SpanID] = true
	}

	var candidate *Span
	for _, s := range spans {
		if hasInternalRef(s, ids) {
			continue
		}
		if candidate == nil {
			candidate = s
			continue
		}
		n, best := len(s.References), len(candidate.References)
		if n < best || (n == best && s.StartTime < candidate.StartTime) {
			candidate = s
		}
	}
	if candidate == nil {
		return ""
	}
	return candidate.ServiceName() + ": " + candidate.OperationName
}

func hasInternalRef(s *Span, ids map[string]bool) bool {
	for _, ref := range s.References {
		if strings.EqualFold(ref.TraceID, s.TraceID) && ids[ref.SpanID] {
			return true
		}
	}
	return false
}
