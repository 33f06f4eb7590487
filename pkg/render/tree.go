// ASCII waterfall rendering of a transformed trace
// One row per span in traversal order with tree connectors and a timing bar
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/andrewh/tracefold/pkg/spantree"
	"github.com/andrewh/tracefold/pkg/trace"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	defaultWidth    = 100
	defaultBarWidth = 24
	minLabelWidth   = 8
	errMarker       = " !! ERR"
)

// TreeOptions controls Tree output. Zero values select defaults.
type TreeOptions struct {
	// Width is the total line width in columns (default 100).
	Width int
	// Focus restricts output to the subtree rooted at this span ID.
	Focus string
	// MaxSpans caps the number of rows; 0 means no limit.
	MaxSpans int
}

type row struct {
	span   *trace.Span
	depth  int
	isLast []bool // whether the node at each depth on the path is a last child
}

// Tree writes an ASCII waterfall of tr to w.
func Tree(w io.Writer, tr *trace.Trace, opts TreeOptions) error {
	if tr == nil || len(tr.Spans) == 0 {
		return fmt.Errorf("trace has no spans")
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}

	root := buildSpanTree(tr.Spans)
	if opts.Focus != "" {
		root = root.Find(func(s *trace.Span) bool { return s != nil && s.SpanID == opts.Focus })
		if root == nil {
			return fmt.Errorf("span %q not found in trace %s", opts.Focus, tr.TraceID)
		}
	}
	rows := collectRows(root)

	var b strings.Builder
	warnings := len(tr.Warnings)
	for _, s := range tr.Spans {
		warnings += len(s.Warnings)
	}
	fmt.Fprintf(&b, "%s (%s, %d spans, %s)", tr.TraceName, shortID(tr.TraceID), len(tr.Spans), FormatDuration(tr.Duration))
	if warnings > 0 {
		fmt.Fprintf(&b, " %d warnings", warnings)
	}
	b.WriteByte('\n')

	overflow := 0
	if opts.MaxSpans > 0 && len(rows) > opts.MaxSpans {
		overflow = len(rows) - opts.MaxSpans
		rows = rows[:opts.MaxSpans]
	}

	// Pass 1: widest duration and marker suffix, for a consistent right edge
	suffixWidth := 0
	for _, r := range rows {
		suffixWidth = max(suffixWidth, len(rowSuffix(r.span)))
	}

	// Pass 2: render
	for _, r := range rows {
		renderRow(&b, r, tr.Duration, width, suffixWidth)
	}
	if overflow > 0 {
		fmt.Fprintf(&b, "  ... +%d more spans\n", overflow)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// buildSpanTree rebuilds the span hierarchy from the traversal order and
// depths Transform assigned. The returned root holds a nil span.
func buildSpanTree(spans []*trace.Span) *spantree.Node[*trace.Span] {
	root := spantree.New[*trace.Span](nil)
	path := []*spantree.Node[*trace.Span]{root}
	for _, s := range spans {
		depth := min(max(s.Depth, 0), len(path)-1)
		node := spantree.New(s)
		path = path[:depth+1]
		path[depth].AddChild(node)
		path = append(path, node)
	}
	return root
}

func collectRows(root *spantree.Node[*trace.Span]) []row {
	var rows []row
	base := 0
	if root.Value == nil {
		base = 1
	}
	root.Walk(func(s *trace.Span, _ *spantree.Node[*trace.Span], depth int) {
		if s == nil {
			return
		}
		rows = append(rows, row{span: s, depth: depth - base})
	})

	// Scan backwards: a row is its parent's last child when no later row at
	// the same depth appears before a shallower one.
	var laterSibling []bool
	last := make([]bool, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		d := rows[i].depth
		for len(laterSibling) <= d {
			laterSibling = append(laterSibling, false)
		}
		last[i] = !laterSibling[d]
		laterSibling[d] = true
		laterSibling = laterSibling[:d+1]
	}

	var path []bool
	for i := range rows {
		d := rows[i].depth
		path = append(path[:d], last[i])
		rows[i].isLast = append([]bool(nil), path...)
	}
	return rows
}

func rowSuffix(s *trace.Span) string {
	suffix := FormatDuration(s.Duration)
	if hasError(s) {
		suffix += errMarker
	}
	if n := len(s.Warnings); n > 0 {
		suffix += fmt.Sprintf(" (%d!)", n)
	}
	return suffix
}

func renderRow(b *strings.Builder, r row, total int64, width, suffixWidth int) {
	// Tree-drawing characters are multi-byte but one column wide, so track
	// display columns separately from byte length.
	var prefix strings.Builder
	prefix.WriteString(" ")
	prefixCols := 1
	for d := 1; d < r.depth; d++ {
		if r.isLast[d] {
			prefix.WriteString("   ")
		} else {
			prefix.WriteString("│  ")
		}
		prefixCols += 3
	}
	if r.depth > 0 {
		if r.isLast[r.depth] {
			prefix.WriteString("└─ ")
		} else {
			prefix.WriteString("├─ ")
		}
		prefixCols += 3
	}

	label := r.span.ServiceName() + ": " + r.span.OperationName

	// Layout: prefix + label + " [" + bar + "] " + suffix
	fixedCols := prefixCols + 2 + defaultBarWidth + 2 + suffixWidth
	labelWidth := max(width-fixedCols, minLabelWidth)
	label = text.Pad(text.Snip(label, labelWidth, "…"), labelWidth, ' ')

	bar := buildBar(r.span.RelativeStartTime, r.span.Duration, total, defaultBarWidth)
	suffix := text.Pad(rowSuffix(r.span), suffixWidth, ' ')

	fmt.Fprintf(b, "%s%s [%s] %s\n", prefix.String(), label, bar, strings.TrimRight(suffix, " "))
}

// buildBar draws the span's extent within the trace as '#' over '.'.
// At least one cell is always filled.
func buildBar(relStart, duration, total int64, width int) string {
	if total <= 0 {
		return strings.Repeat("#", width)
	}
	startPos := int(relStart * int64(width) / total)
	endPos := int((relStart + max(duration, 0)) * int64(width) / total)
	startPos = min(max(startPos, 0), width-1)
	endPos = min(max(endPos, startPos+1), width)

	bar := make([]byte, width)
	for i := range bar {
		if i >= startPos && i < endPos {
			bar[i] = '#'
		} else {
			bar[i] = '.'
		}
	}
	return string(bar)
}

// hasError reports whether the span is tagged error=true, as a bool or a string.
func hasError(s *trace.Span) bool {
	for _, kv := range s.Tags {
		if kv.Key != "error" {
			continue
		}
		switch v := kv.Value.(type) {
		case bool:
			return v
		case string:
			return v == "true"
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
