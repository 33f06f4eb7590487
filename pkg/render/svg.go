// SVG timeline of a transformed trace
// One bar per span in traversal order, coloured by service
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/andrewh/tracefold/pkg/trace"
)

const (
	svgWidth     = 1000
	marginTop    = 40
	marginBottom = 40
	marginLeft   = 280
	marginRight  = 20
	rowHeight    = 18
	barHeight    = 12
	depthIndent  = 10
	plotWidth    = svgWidth - marginLeft - marginRight
	timeTicks    = 5
	maxLabelLen  = 40
)

// Timeline writes an SVG timeline of tr to w. A blank title uses the trace name.
func Timeline(w io.Writer, tr *trace.Trace, title string) error {
	if tr == nil || len(tr.Spans) == 0 {
		return fmt.Errorf("no spans to render")
	}
	if title == "" {
		title = tr.TraceName
	}
	colors := trace.NewColorGenerator().ServiceColors(tr)
	total := tr.Duration
	plotHeight := len(tr.Spans) * rowHeight
	svgHeight := marginTop + plotHeight + marginBottom

	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`, svgWidth, svgHeight, svgWidth, svgHeight))
	b.WriteString("\n<style>\n")
	b.WriteString("  text { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; fill: #333; }\n")
	b.WriteString("  .title { font-size: 14px; font-weight: 600; }\n")
	b.WriteString("  .span-label { font-size: 10px; }\n")
	b.WriteString("  .tick-label { font-size: 10px; fill: #666; }\n")
	b.WriteString("  .grid { stroke: #e0e0e0; stroke-width: 1; }\n")
	b.WriteString("  .error { stroke: #dc2626; stroke-width: 1.5; }\n")
	b.WriteString("</style>\n")

	b.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, svgWidth, svgHeight))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf(`<text x="10" y="24" class="title">%s</text>`, xmlEscape(title)))
	b.WriteString("\n")

	// Time grid
	for i := 0; i <= timeTicks; i++ {
		x := marginLeft + i*plotWidth/timeTicks
		b.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid"/>`, x, marginTop, x, marginTop+plotHeight))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" class="tick-label">%s</text>`, x, marginTop+plotHeight+16, FormatDuration(total*int64(i)/timeTicks)))
		b.WriteString("\n")
	}

	for i, s := range tr.Spans {
		y := marginTop + i*rowHeight
		x, barW := marginLeft, plotWidth
		if total > 0 {
			x = marginLeft + int(int64(plotWidth)*s.RelativeStartTime/total)
			barW = max(int(int64(plotWidth)*s.Duration/total), 1)
		}

		label := s.ServiceName() + ": " + s.OperationName
		if r := []rune(label); len(r) > maxLabelLen {
			label = string(r[:maxLabelLen-1]) + "…"
		}
		b.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="span-label">%s</text>`, 10+s.Depth*depthIndent, y+barHeight-2, xmlEscape(label)))
		b.WriteString("\n")

		class := ""
		if hasError(s) {
			class = ` class="error"`
		}
		b.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"%s><title>%s %s</title></rect>`,
			x, y+(rowHeight-barHeight)/2, barW, barHeight, colors[s.ServiceName()], class, xmlEscape(s.SpanID), FormatDuration(s.Duration)))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="none" stroke="#ccc" stroke-width="1"/>`, marginLeft, marginTop, plotWidth, plotHeight))
	b.WriteString("\n")
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
