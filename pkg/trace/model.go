// Trace data model: raw spans as served by the query API and the enriched,
// traversal-ordered form produced by Transform
package trace

// RefType is the kind of a span reference.
type RefType string

const (
	ChildOf     RefType = "CHILD_OF"
	FollowsFrom RefType = "FOLLOWS_FROM"
)

// Valid reports whether t is a reference kind the tree builder understands.
func (t RefType) Valid() bool {
	return t == ChildOf || t == FollowsFrom
}

// KeyValue is a tag or log field. Value holds whatever the source decoded to:
// string, bool, float64 for JSON numbers, int64 or []byte from OTLP.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Value any    `json:"value" yaml:"value"`
}

// Log is a timestamped set of fields attached to a span.
type Log struct {
	Timestamp int64      `json:"timestamp" yaml:"timestamp"` // µs since epoch
	Fields    []KeyValue `json:"fields" yaml:"fields"`
}

// Reference links a span to a span it depends on.
type Reference struct {
	RefType RefType `json:"refType" yaml:"refType"`
	TraceID string  `json:"traceID" yaml:"traceID"`
	SpanID  string  `json:"spanID" yaml:"spanID"`
}

// Process is the service instance that produced a set of spans.
type Process struct {
	ServiceName string     `json:"serviceName" yaml:"serviceName"`
	Tags        []KeyValue `json:"tags" yaml:"tags"`
}

// RawSpan is a span as fetched, before any normalisation.
// StartTime and Duration are microseconds.
type RawSpan struct {
	TraceID       string      `json:"traceID" yaml:"traceID"`
	SpanID        string      `json:"spanID" yaml:"spanID"`
	OperationName string      `json:"operationName" yaml:"operationName"`
	ProcessID     string      `json:"processID" yaml:"processID"`
	StartTime     int64       `json:"startTime" yaml:"startTime"`
	Duration      int64       `json:"duration" yaml:"duration"`
	References    []Reference `json:"references" yaml:"references"`
	Tags          []KeyValue  `json:"tags" yaml:"tags"`
	Logs          []Log       `json:"logs" yaml:"logs"`
	Warnings      []string    `json:"warnings" yaml:"warnings"`

	// Process is set by exports that inline the process on each span
	// instead of using the trace-level process map.
	Process *Process `json:"process,omitempty" yaml:"process,omitempty"`
}

// RawTrace is one trace as fetched: a flat span list plus the process map.
type RawTrace struct {
	TraceID   string             `json:"traceID" yaml:"traceID"`
	Spans     []RawSpan          `json:"spans" yaml:"spans"`
	Processes map[string]Process `json:"processes" yaml:"processes"`
	Warnings  []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// BackReference records that another span names this one in a non-primary reference.
type BackReference struct {
	RefType RefType `json:"refType" yaml:"refType"`
	SpanID  string  `json:"spanID" yaml:"spanID"`
	TraceID string  `json:"traceID" yaml:"traceID"`
}

// Span is an enriched span. The embedded fields are copies of the raw span;
// the rest is derived by Transform.
type Span struct {
	TraceID       string      `json:"traceID" yaml:"traceID"`
	SpanID        string      `json:"spanID" yaml:"spanID"`
	OperationName string      `json:"operationName" yaml:"operationName"`
	ProcessID     string      `json:"processID" yaml:"processID"`
	StartTime     int64       `json:"startTime" yaml:"startTime"`
	Duration      int64       `json:"duration" yaml:"duration"`
	References    []Reference `json:"references" yaml:"references"`
	Tags          []KeyValue  `json:"tags" yaml:"tags"`
	Logs          []Log       `json:"logs" yaml:"logs"`
	Warnings      []string    `json:"warnings" yaml:"warnings"`

	// Process is shared by every span of the same process. Nil when the
	// process ID does not resolve.
	Process *Process `json:"process,omitempty" yaml:"process,omitempty"`

	Depth                    int             `json:"depth" yaml:"depth"`
	RelativeStartTime        int64           `json:"relativeStartTime" yaml:"relativeStartTime"`
	HasChildren              bool            `json:"hasChildren" yaml:"hasChildren"`
	SubsidiarilyReferencedBy []BackReference `json:"subsidiarilyReferencedBy,omitempty" yaml:"subsidiarilyReferencedBy,omitempty"`
}

// ServiceName returns the span's service name, or "" if the process is unknown.
func (s *Span) ServiceName() string {
	if s.Process == nil {
		return ""
	}
	return s.Process.ServiceName
}

// EndTime returns StartTime + Duration.
func (s *Span) EndTime() int64 {
	return s.StartTime + s.Duration
}

// ServiceCount is the number of spans a service contributed to a trace.
type ServiceCount struct {
	Name          string `json:"name" yaml:"name"`
	NumberOfSpans int    `json:"numberOfSpans" yaml:"numberOfSpans"`
}

// Trace is a normalised trace. Spans are in depth-first order: every span
// follows its ancestors, and siblings are ordered by start time.
type Trace struct {
	TraceID   string              `json:"traceID" yaml:"traceID"`
	Processes map[string]*Process `json:"processes" yaml:"processes"`
	Spans     []*Span             `json:"spans" yaml:"spans"`
	StartTime int64               `json:"startTime" yaml:"startTime"`
	EndTime   int64               `json:"endTime" yaml:"endTime"`
	Duration  int64               `json:"duration" yaml:"duration"`
	TraceName string              `json:"traceName" yaml:"traceName"`
	Services  []ServiceCount      `json:"services" yaml:"services"`
	Warnings  []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	byID map[string]*Span
}

// SpanByID returns the span with the given (possibly renamed) ID.
func (t *Trace) SpanByID(id string) (*Span, bool) {
	if t.byID != nil {
		s, ok := t.byID[id]
		return s, ok
	}
	// Decoded traces have no index
	for _, s := range t.Spans {
		if s.SpanID == id {
			return s, true
		}
	}
	return nil, false
}
