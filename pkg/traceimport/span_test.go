// Unit tests for trace parsing across jaeger, OTLP, and stdouttrace formats
// Covers format detection, field extraction, and error handling
package traceimport

import (
	"strings"
	"testing"

	"github.com/andrewh/tracefold/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jaegerResponseJSON = `{
	"data": [{
		"traceID": "ABCDEF",
		"spans": [
			{"traceID": "abcdef", "spanID": "s1", "operationName": "GET /", "processID": "p1", "startTime": 100, "duration": 50,
			 "references": [], "tags": [{"key": "http.status_code", "type": "int64", "value": 200}], "logs": []},
			{"traceID": "abcdef", "spanID": "s2", "operationName": "query", "processID": "p2", "startTime": 110, "duration": 20,
			 "references": [{"refType": "CHILD_OF", "traceID": "abcdef", "spanID": "s1"}], "tags": [], "logs": [], "warnings": null}
		],
		"processes": {
			"p1": {"serviceName": "frontend", "tags": [{"key": "hostname", "type": "string", "value": "fe-1"}]},
			"p2": {"serviceName": "db", "tags": []}
		},
		"warnings": null
	}],
	"total": 0, "limit": 0, "offset": 0, "errors": null
}`

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		`{"data":[]}`:                              FormatJaeger,
		`[{"traceID":"a","spans":[]}]`:             FormatJaeger,
		`{"traceID":"a","spans":[],"processes":{}}`: FormatJaeger,
		`{"resourceSpans":[]}`:                     FormatOTLP,
		`{"Name":"op","SpanContext":{}}`:           FormatStdouttrace,
		"{\n  \"resourceSpans\": []\n}":            FormatOTLP,
	}
	for input, want := range cases {
		got, err := detectFormat([]byte(input))
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestDetectFormat_Unknown(t *testing.T) {
	_, err := detectFormat([]byte(`{"something":"else"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot detect format")

	_, err = detectFormat([]byte(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot detect format")
}

func TestParseTraces_JaegerEnvelope(t *testing.T) {
	traces, err := ParseTraces(strings.NewReader(jaegerResponseJSON), FormatAuto)
	require.NoError(t, err)
	require.Len(t, traces, 1)

	raw := traces[0]
	assert.Equal(t, "ABCDEF", raw.TraceID)
	require.Len(t, raw.Spans, 2)
	assert.Equal(t, "query", raw.Spans[1].OperationName)
	assert.Equal(t, int64(110), raw.Spans[1].StartTime)
	assert.Equal(t, []trace.Reference{{RefType: trace.ChildOf, TraceID: "abcdef", SpanID: "s1"}}, raw.Spans[1].References)
	assert.Equal(t, 200.0, raw.Spans[0].Tags[0].Value)
	assert.Equal(t, "frontend", raw.Processes["p1"].ServiceName)
}

func TestParseTraces_JaegerSingleAndArray(t *testing.T) {
	single := `{"traceID":"t1","spans":[{"spanID":"a","startTime":1}],"processes":{}}`
	traces, err := ParseTraces(strings.NewReader(single), FormatJaeger)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, "t1", traces[0].TraceID)

	array := `[{"traceID":"t1","spans":[]},null,{"traceID":"t2","spans":[]}]`
	traces, err = ParseTraces(strings.NewReader(array), FormatAuto)
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, "t2", traces[1].TraceID)
}

func TestParseTraces_JaegerErrorEnvelope(t *testing.T) {
	input := `{"data":null,"errors":[{"code":404,"msg":"trace not found"}]}`
	_, err := ParseTraces(strings.NewReader(input), FormatAuto)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query API error 404: trace not found")
}

func TestParseTraces_JaegerEmptyData(t *testing.T) {
	_, err := ParseTraces(strings.NewReader(`{"data":[]}`), FormatAuto)
	assert.ErrorIs(t, err, ErrNoTraces)
}

func TestParseTraces_EmptyInput(t *testing.T) {
	_, err := ParseTraces(strings.NewReader("  \n"), FormatAuto)
	assert.ErrorIs(t, err, ErrNoTraces)
}

func TestParseTraces_UnknownFormat(t *testing.T) {
	_, err := ParseTraces(strings.NewReader(`{}`), Format("zipkin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "zipkin"`)
}

// Base64 "AQIDBAUGBwgJCgsMDQ4PEA==" decodes to bytes [1..16], hex = "0102030405060708090a0b0c0d0e0f10"
const otlpJSON = `{
	"resourceSpans": [{
		"resource": {"attributes": [
			{"key": "service.name", "value": {"stringValue": "api"}},
			{"key": "host.name", "value": {"stringValue": "node-1"}}
		]},
		"scopeSpans": [{"scope": {"name": "api-lib", "version": "1.2.0"}, "spans": [
			{
				"traceId": "AQIDBAUGBwgJCgsMDQ4PEA==",
				"spanId": "AQIDBAUGBwg=",
				"name": "GET /users",
				"kind": 2,
				"startTimeUnixNano": "1700000000000000000",
				"endTimeUnixNano": "1700000000030000000",
				"status": {},
				"attributes": [
					{"key": "http.method", "value": {"stringValue": "GET"}},
					{"key": "retries", "value": {"intValue": "3"}},
					{"key": "ok", "value": {"boolValue": true}},
					{"key": "ratio", "value": {"doubleValue": 0.5}},
					{"key": "list", "value": {"arrayValue": {"values": [{"stringValue": "a"}]}}}
				]
			},
			{
				"traceId": "AQIDBAUGBwgJCgsMDQ4PEA==",
				"spanId": "CQoLDA0ODxA=",
				"parentSpanId": "AQIDBAUGBwg=",
				"name": "SELECT users",
				"kind": 3,
				"startTimeUnixNano": "1700000000005000000",
				"endTimeUnixNano": "1700000000020000000",
				"status": {"code": 2, "message": "timeout"},
				"events": [{"timeUnixNano": "1700000000006000000", "name": "retry", "attributes": [{"key": "attempt", "value": {"intValue": "2"}}]}],
				"links": [{"traceId": "AQIDBAUGBwgJCgsMDQ4PEA==", "spanId": "AQIDBAUGBwg="}]
			}
		]}]
	}]
}`

func TestParseTraces_OTLP(t *testing.T) {
	traces, err := ParseTraces(strings.NewReader(otlpJSON), FormatAuto)
	require.NoError(t, err)
	require.Len(t, traces, 1)

	raw := traces[0]
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", raw.TraceID)
	require.Len(t, raw.Spans, 2)
	require.Len(t, raw.Processes, 1)
	assert.Equal(t, trace.Process{
		ServiceName: "api",
		Tags:        []trace.KeyValue{{Key: "host.name", Type: "string", Value: "node-1"}},
	}, raw.Processes["p1"])

	root := raw.Spans[0]
	assert.Equal(t, "0102030405060708", root.SpanID)
	assert.Equal(t, "p1", root.ProcessID)
	assert.Nil(t, root.Process)
	assert.Empty(t, root.References)
	assert.Equal(t, int64(1700000000000000), root.StartTime)
	assert.Equal(t, int64(30000), root.Duration)
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "http.method", Type: "string", Value: "GET"})
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "retries", Type: "int64", Value: int64(3)})
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "ok", Type: "bool", Value: true})
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "ratio", Type: "float64", Value: 0.5})
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "span.kind", Type: "string", Value: "server"})
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "otel.scope.name", Type: "string", Value: "api-lib"})
	assert.Contains(t, root.Tags, trace.KeyValue{Key: "otel.scope.version", Type: "string", Value: "1.2.0"})
	assert.NotContains(t, root.Tags, trace.KeyValue{Key: "error", Type: "bool", Value: true})

	child := raw.Spans[1]
	assert.Equal(t, []trace.Reference{
		{RefType: trace.ChildOf, TraceID: raw.TraceID, SpanID: "0102030405060708"},
		{RefType: trace.FollowsFrom, TraceID: raw.TraceID, SpanID: "0102030405060708"},
	}, child.References)
	assert.Contains(t, child.Tags, trace.KeyValue{Key: "error", Type: "bool", Value: true})
	assert.Contains(t, child.Tags, trace.KeyValue{Key: "otel.status_description", Type: "string", Value: "timeout"})
	assert.Contains(t, child.Tags, trace.KeyValue{Key: "span.kind", Type: "string", Value: "client"})
	require.Len(t, child.Logs, 1)
	assert.Equal(t, int64(1700000000006000), child.Logs[0].Timestamp)
	assert.Equal(t, []trace.KeyValue{
		{Key: "event", Type: "string", Value: "retry"},
		{Key: "attempt", Type: "int64", Value: int64(2)},
	}, child.Logs[0].Fields)
}

func TestParseTraces_OTLPScopeFallback(t *testing.T) {
	input := `{"resourceSpans":[{"resource":{},"scopeSpans":[{"scope":{"name":"worker"},"spans":[
		{"traceId":"AQIDBAUGBwgJCgsMDQ4PEA==","spanId":"AQIDBAUGBwg=","name":"tick","startTimeUnixNano":"1000","endTimeUnixNano":"2000"}
	]}]}]}`
	traces, err := ParseTraces(strings.NewReader(input), FormatOTLP)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, "worker", traces[0].Processes["p1"].ServiceName)
	assert.Equal(t, int64(1), traces[0].Spans[0].StartTime)
	assert.Equal(t, int64(1), traces[0].Spans[0].Duration)
}

func TestParseTraces_OTLPInvalid(t *testing.T) {
	_, err := ParseTraces(strings.NewReader(`{"resourceSpans": "nope"}`), FormatOTLP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing OTLP")
}

func TestParseStdouttrace_Basic(t *testing.T) {
	line := `{"Name":"query","SpanContext":{"TraceID":"aaa","SpanID":"bbb"},"Parent":{"TraceID":"aaa","SpanID":"0000000000000000"},"SpanKind":3,"StartTime":"2024-01-01T00:00:00Z","EndTime":"2024-01-01T00:00:00.005Z","Attributes":[{"Key":"db.system","Value":{"Type":"STRING","Value":"postgresql"}},{"Key":"rows","Value":{"Type":"INT64","Value":12}}],"Status":{"Code":"Unset"},"Resource":[{"Key":"service.name","Value":{"Type":"STRING","Value":"postgres"}}],"InstrumentationScope":{"Name":"pgx"}}`

	spans, err := parseStdouttrace([]byte(line))
	require.NoError(t, err)
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "aaa", s.TraceID)
	assert.Equal(t, "bbb", s.SpanID)
	assert.Empty(t, s.References, "all-zeros parent should be a root")
	require.NotNil(t, s.Process)
	assert.Equal(t, "postgres", s.Process.ServiceName)
	assert.Equal(t, "query", s.OperationName)
	assert.Equal(t, int64(5000), s.Duration)
	assert.Contains(t, s.Tags, trace.KeyValue{Key: "db.system", Type: "string", Value: "postgresql"})
	assert.Contains(t, s.Tags, trace.KeyValue{Key: "rows", Type: "int64", Value: int64(12)})
	assert.Contains(t, s.Tags, trace.KeyValue{Key: "span.kind", Type: "string", Value: "client"})
}

func TestParseStdouttrace_ErrorAndParent(t *testing.T) {
	line := `{"Name":"fail","SpanContext":{"TraceID":"aaa","SpanID":"ccc"},"Parent":{"TraceID":"aaa","SpanID":"bbb"},"StartTime":"2024-01-01T00:00:00Z","EndTime":"2024-01-01T00:00:00.005Z","Attributes":[],"Status":{"Code":"Error","Description":"boom"},"InstrumentationScope":{"Name":"svc"}}`

	spans, err := parseStdouttrace([]byte(line))
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, []trace.Reference{{RefType: trace.ChildOf, TraceID: "aaa", SpanID: "bbb"}}, spans[0].References)
	assert.Contains(t, spans[0].Tags, trace.KeyValue{Key: "error", Type: "bool", Value: true})
	assert.Equal(t, "svc", spans[0].Process.ServiceName, "scope name is the fallback service")
}

func TestParseStdouttrace_BadLine(t *testing.T) {
	input := `{"Name":"ok","SpanContext":{"TraceID":"a","SpanID":"b"}}` + "\n{broken"
	_, err := parseStdouttrace([]byte(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestIsZeroID(t *testing.T) {
	assert.True(t, isZeroID("0000000000000000"))
	assert.True(t, isZeroID("00"))
	assert.False(t, isZeroID("0a00000000000000"))
	assert.False(t, isZeroID(""))
}
