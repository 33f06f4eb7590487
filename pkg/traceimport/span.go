// Format detection and parsers for trace input
// Handles Jaeger query-API JSON, OTLP protobuf JSON, and line-delimited stdouttrace
package traceimport

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andrewh/tracefold/pkg/trace"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// Format identifies the input trace format.
type Format string

const (
	FormatAuto        Format = "auto"
	FormatJaeger      Format = "jaeger"
	FormatOTLP        Format = "otlp"
	FormatStdouttrace Format = "stdouttrace"
)

// maxInputSize is the maximum input size to prevent OOM on large trace exports.
const maxInputSize = 256 * 1024 * 1024 // 256 MB

// ErrNoTraces is returned when the input holds no traces.
var ErrNoTraces = errors.New("no traces found in input")

// ParseTraces reads raw traces from r in the given format.
// FormatAuto inspects the input to determine the format.
// Input is limited to 256 MB to prevent OOM on large trace exports.
func ParseTraces(r io.Reader, format Format) ([]*trace.RawTrace, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d MB", maxInputSize/(1024*1024))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoTraces
	}

	if format == "" || format == FormatAuto {
		format, err = detectFormat(data)
		if err != nil {
			return nil, err
		}
	}

	var traces []*trace.RawTrace
	switch format {
	case FormatJaeger:
		traces, err = parseJaeger(data)
	case FormatOTLP:
		var spans []trace.RawSpan
		if spans, err = parseOTLP(data); err == nil {
			traces = GroupSpans(spans)
		}
	case FormatStdouttrace:
		var spans []trace.RawSpan
		if spans, err = parseStdouttrace(data); err == nil {
			traces = GroupSpans(spans)
		}
	default:
		return nil, fmt.Errorf("unknown format %q, valid formats: auto, jaeger, otlp, stdouttrace", format)
	}
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return nil, ErrNoTraces
	}
	return traces, nil
}

// detectFormat examines the input to determine the format.
// Tries the first line (for line-delimited stdouttrace), then the full data
// (for pretty-printed documents).
func detectFormat(data []byte) (Format, error) {
	if data[0] == '[' {
		return FormatJaeger, nil
	}

	firstLine, _, hasMore := bytes.Cut(data, []byte{'\n'})
	firstLine = bytes.TrimSpace(firstLine)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(firstLine, &probe); err == nil {
		if f, ok := probeFormat(probe); ok {
			return f, nil
		}
	}

	// First line wasn't a complete JSON object; try the whole input as one document.
	if hasMore {
		if err := json.Unmarshal(data, &probe); err == nil {
			if f, ok := probeFormat(probe); ok {
				return f, nil
			}
		}
	}

	return "", fmt.Errorf("cannot detect format: input has none of data/spans (jaeger), resourceSpans (OTLP), or SpanContext (stdouttrace)")
}

func probeFormat(probe map[string]json.RawMessage) (Format, bool) {
	if _, ok := probe["SpanContext"]; ok {
		return FormatStdouttrace, true
	}
	if _, ok := probe["resourceSpans"]; ok {
		return FormatOTLP, true
	}
	if _, ok := probe["data"]; ok {
		return FormatJaeger, true
	}
	if _, ok := probe["spans"]; ok {
		return FormatJaeger, true
	}
	return "", false
}

// jaegerResponse is the query-API envelope: {"data": [...], "errors": [...]}.
type jaegerResponse struct {
	Data   []*trace.RawTrace `json:"data"`
	Errors []jaegerError     `json:"errors"`
}

type jaegerError struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	TraceID string `json:"traceID"`
}

func parseJaeger(data []byte) ([]*trace.RawTrace, error) {
	if data[0] == '[' {
		var traces []*trace.RawTrace
		if err := json.Unmarshal(data, &traces); err != nil {
			return nil, fmt.Errorf("parsing jaeger JSON: %w", err)
		}
		return compact(traces), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing jaeger JSON: %w", err)
	}
	if _, ok := probe["data"]; !ok {
		var single trace.RawTrace
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing jaeger JSON: %w", err)
		}
		return []*trace.RawTrace{&single}, nil
	}

	var resp jaegerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing jaeger JSON: %w", err)
	}
	if len(resp.Data) == 0 && len(resp.Errors) > 0 {
		e := resp.Errors[0]
		return nil, fmt.Errorf("query API error %d: %s", e.Code, e.Msg)
	}
	return compact(resp.Data), nil
}

func compact(traces []*trace.RawTrace) []*trace.RawTrace {
	out := traces[:0]
	for _, t := range traces {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// stdouttraceEvent mirrors the Go SDK's stdouttrace JSON output.
type stdouttraceEvent struct {
	Name        string     `json:"Name"`
	SpanContext sdkSpanRef `json:"SpanContext"`
	Parent      sdkSpanRef `json:"Parent"`
	SpanKind    int        `json:"SpanKind"`
	StartTime   time.Time  `json:"StartTime"`
	EndTime     time.Time  `json:"EndTime"`
	Attributes  []sdkAttr  `json:"Attributes"`
	Events      []sdkEvent `json:"Events"`
	Links       []sdkLink  `json:"Links"`
	Status      sdkStatus  `json:"Status"`
	Resource    []sdkAttr  `json:"Resource"`

	InstrumentationScope struct {
		Name    string `json:"Name"`
		Version string `json:"Version"`
	} `json:"InstrumentationScope"`
}

type sdkSpanRef struct {
	TraceID string `json:"TraceID"`
	SpanID  string `json:"SpanID"`
}

type sdkAttr struct {
	Key   string `json:"Key"`
	Value struct {
		Type  string `json:"Type"`
		Value any    `json:"Value"`
	} `json:"Value"`
}

type sdkEvent struct {
	Name       string    `json:"Name"`
	Attributes []sdkAttr `json:"Attributes"`
	Time       time.Time `json:"Time"`
}

type sdkLink struct {
	SpanContext sdkSpanRef `json:"SpanContext"`
}

type sdkStatus struct {
	Code        string `json:"Code"`
	Description string `json:"Description"`
}

// spanKinds maps SDK span kind numbers to span.kind tag values.
var spanKinds = map[int]string{
	1: "internal",
	2: "server",
	3: "client",
	4: "producer",
	5: "consumer",
}

func parseStdouttrace(data []byte) ([]trace.RawSpan, error) {
	var spans []trace.RawSpan
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var evt stdouttraceEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		process := trace.Process{Tags: []trace.KeyValue{}}
		for _, attr := range evt.Resource {
			if attr.Key == "service.name" {
				process.ServiceName = fmt.Sprint(attr.Value.Value)
				continue
			}
			process.Tags = append(process.Tags, sdkTag(attr))
		}
		// Fall back to the instrumentation scope when the resource has no service name
		if process.ServiceName == "" {
			process.ServiceName = evt.InstrumentationScope.Name
		}

		var refs []trace.Reference
		if parentID := evt.Parent.SpanID; parentID != "" && !isZeroID(parentID) {
			refs = append(refs, trace.Reference{RefType: trace.ChildOf, TraceID: evt.SpanContext.TraceID, SpanID: parentID})
		}
		for _, link := range evt.Links {
			if link.SpanContext.SpanID == "" || isZeroID(link.SpanContext.SpanID) {
				continue
			}
			refs = append(refs, trace.Reference{RefType: trace.FollowsFrom, TraceID: link.SpanContext.TraceID, SpanID: link.SpanContext.SpanID})
		}

		tags := make([]trace.KeyValue, 0, len(evt.Attributes)+4)
		for _, attr := range evt.Attributes {
			tags = append(tags, sdkTag(attr))
		}
		if kind, ok := spanKinds[evt.SpanKind]; ok {
			tags = append(tags, trace.KeyValue{Key: "span.kind", Type: "string", Value: kind})
		}
		tags = append(tags, statusTags(evt.Status.Code == "Error", evt.Status.Description)...)
		tags = append(tags, scopeTags(evt.InstrumentationScope.Name, evt.InstrumentationScope.Version)...)

		logs := make([]trace.Log, 0, len(evt.Events))
		for _, e := range evt.Events {
			fields := []trace.KeyValue{{Key: "event", Type: "string", Value: e.Name}}
			for _, attr := range e.Attributes {
				fields = append(fields, sdkTag(attr))
			}
			logs = append(logs, trace.Log{Timestamp: micros(e.Time), Fields: fields})
		}

		spans = append(spans, trace.RawSpan{
			TraceID:       evt.SpanContext.TraceID,
			SpanID:        evt.SpanContext.SpanID,
			OperationName: evt.Name,
			StartTime:     micros(evt.StartTime),
			Duration:      max(evt.EndTime.Sub(evt.StartTime).Microseconds(), 0),
			References:    refs,
			Tags:          tags,
			Logs:          logs,
			Process:       &process,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return spans, nil
}

// sdkTag converts a stdouttrace attribute, restoring integer types lost to JSON.
func sdkTag(attr sdkAttr) trace.KeyValue {
	v := attr.Value.Value
	switch attr.Value.Type {
	case "INT64":
		if f, ok := v.(float64); ok {
			return trace.KeyValue{Key: attr.Key, Type: "int64", Value: int64(f)}
		}
	case "BOOL":
		return trace.KeyValue{Key: attr.Key, Type: "bool", Value: v}
	case "FLOAT64":
		return trace.KeyValue{Key: attr.Key, Type: "float64", Value: v}
	case "STRING":
		return trace.KeyValue{Key: attr.Key, Type: "string", Value: v}
	}
	if s, ok := v.(string); ok {
		return trace.KeyValue{Key: attr.Key, Type: "string", Value: s}
	}
	b, _ := json.Marshal(v)
	return trace.KeyValue{Key: attr.Key, Type: "string", Value: string(b)}
}

func parseOTLP(data []byte) ([]trace.RawSpan, error) {
	var req coltracepb.ExportTraceServiceRequest
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}
	if err := opts.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing OTLP: %w", err)
	}

	var spans []trace.RawSpan
	for _, rs := range req.ResourceSpans {
		resource := trace.Process{Tags: []trace.KeyValue{}}
		for _, attr := range rs.Resource.GetAttributes() {
			if attr.Key == "service.name" {
				resource.ServiceName = attr.Value.GetStringValue()
				continue
			}
			resource.Tags = append(resource.Tags, otlpTag(attr))
		}

		for _, ss := range rs.ScopeSpans {
			process := resource
			if process.ServiceName == "" {
				process.ServiceName = ss.Scope.GetName()
			}

			for _, span := range ss.Spans {
				spans = append(spans, otlpSpan(span, ss.Scope, &process))
			}
		}
	}
	return spans, nil
}

func otlpSpan(span *tracepb.Span, scope *commonpb.InstrumentationScope, process *trace.Process) trace.RawSpan {
	traceID := hex.EncodeToString(span.TraceId)

	var refs []trace.Reference
	if parentID := hex.EncodeToString(span.ParentSpanId); parentID != "" && !isZeroID(parentID) {
		refs = append(refs, trace.Reference{RefType: trace.ChildOf, TraceID: traceID, SpanID: parentID})
	}
	for _, link := range span.Links {
		linkID := hex.EncodeToString(link.SpanId)
		if linkID == "" || isZeroID(linkID) {
			continue
		}
		refs = append(refs, trace.Reference{RefType: trace.FollowsFrom, TraceID: hex.EncodeToString(link.TraceId), SpanID: linkID})
	}

	tags := make([]trace.KeyValue, 0, len(span.Attributes)+4)
	for _, attr := range span.Attributes {
		tags = append(tags, otlpTag(attr))
	}
	if span.Kind != tracepb.Span_SPAN_KIND_UNSPECIFIED {
		kind := strings.ToLower(strings.TrimPrefix(span.Kind.String(), "SPAN_KIND_"))
		tags = append(tags, trace.KeyValue{Key: "span.kind", Type: "string", Value: kind})
	}
	isError := span.Status != nil && span.Status.Code == tracepb.Status_STATUS_CODE_ERROR
	tags = append(tags, statusTags(isError, span.Status.GetMessage())...)
	tags = append(tags, scopeTags(scope.GetName(), scope.GetVersion())...)

	logs := make([]trace.Log, 0, len(span.Events))
	for _, e := range span.Events {
		fields := []trace.KeyValue{{Key: "event", Type: "string", Value: e.Name}}
		for _, attr := range e.Attributes {
			fields = append(fields, otlpTag(attr))
		}
		logs = append(logs, trace.Log{Timestamp: int64(e.TimeUnixNano / 1000), Fields: fields}) //nolint:gosec // nanosecond timestamps are always positive
	}

	var duration int64
	if span.EndTimeUnixNano > span.StartTimeUnixNano {
		duration = int64((span.EndTimeUnixNano - span.StartTimeUnixNano) / 1000) //nolint:gosec // bounded by the subtraction
	}

	return trace.RawSpan{
		TraceID:       traceID,
		SpanID:        hex.EncodeToString(span.SpanId),
		OperationName: span.Name,
		StartTime:     int64(span.StartTimeUnixNano / 1000), //nolint:gosec // nanosecond timestamps are always positive
		Duration:      duration,
		References:    refs,
		Tags:          tags,
		Logs:          logs,
		Process:       process,
	}
}

// otlpTag converts an OTLP attribute into a typed tag. Arrays and maps are
// rendered as their protobuf JSON form.
func otlpTag(attr *commonpb.KeyValue) trace.KeyValue {
	kv := trace.KeyValue{Key: attr.Key}
	switch v := attr.Value.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		kv.Type, kv.Value = "string", v.StringValue
	case *commonpb.AnyValue_BoolValue:
		kv.Type, kv.Value = "bool", v.BoolValue
	case *commonpb.AnyValue_IntValue:
		kv.Type, kv.Value = "int64", v.IntValue
	case *commonpb.AnyValue_DoubleValue:
		kv.Type, kv.Value = "float64", v.DoubleValue
	case *commonpb.AnyValue_BytesValue:
		kv.Type, kv.Value = "binary", hex.EncodeToString(v.BytesValue)
	case nil:
		kv.Type, kv.Value = "string", ""
	default:
		b, err := protojson.Marshal(attr.Value)
		if err != nil {
			b = []byte(attr.Value.String())
		}
		kv.Type, kv.Value = "string", string(b)
	}
	return kv
}

func statusTags(isError bool, description string) []trace.KeyValue {
	if !isError {
		return nil
	}
	tags := []trace.KeyValue{
		{Key: "error", Type: "bool", Value: true},
		{Key: "otel.status_code", Type: "string", Value: "ERROR"},
	}
	if description != "" {
		tags = append(tags, trace.KeyValue{Key: "otel.status_description", Type: "string", Value: description})
	}
	return tags
}

func scopeTags(name, version string) []trace.KeyValue {
	var tags []trace.KeyValue
	if name != "" {
		tags = append(tags, trace.KeyValue{Key: "otel.scope.name", Type: "string", Value: name})
	}
	if version != "" {
		tags = append(tags, trace.KeyValue{Key: "otel.scope.version", Type: "string", Value: version})
	}
	return tags
}

// micros converts t to microseconds since the epoch, mapping the zero time to 0.
func micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// isZeroID checks if a hex-encoded ID is all zeros.
func isZeroID(id string) bool {
	for _, c := range id {
		if c != '0' {
			return false
		}
	}
	return len(id) > 0
}
