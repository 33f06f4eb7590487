package trace

import "sync"

// palette is the fixed set of service colours, assigned in order.
var palette = []string{
	"#17B8BE", "#F8DCA1", "#B7885E", "#FFCB99", "#F89570",
	"#829AE3", "#E79FD5", "#1E96BE", "#89DAC1", "#B3AD9E",
	"#12939A", "#DDB27C", "#88572C", "#FF9833", "#EF5D28",
	"#162A65", "#DA70BF", "#125C77", "#4DC19C", "#776E57",
}

// ColorGenerator hands out display colours by key. The first key seen gets the
// first palette entry, the next new key the second, wrapping after the last.
// Safe for concurrent use.
type ColorGenerator struct {
	mu    sync.Mutex
	index map[string]int
	next  int
}

// NewColorGenerator returns a generator with no assignments.
func NewColorGenerator() *ColorGenerator {
	return &ColorGenerator{index: make(map[string]int)}
}

// ColorFor returns the colour for key, assigning one on first use.
func (g *ColorGenerator) ColorFor(key string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.index[key]
	if !ok {
		i = g.next
		g.index[key] = i
		g.next = (g.next + 1) % len(palette)
	}
	return palette[i]
}

// ServiceColors assigns colours to the trace's services in summary order.
func (g *ColorGenerator) ServiceColors(t *Trace) map[string]string {
	colors := make(map[string]string, len(t.Services))
	for _, svc := range t.Services {
		colors[svc.Name] = g.ColorFor(svc.Name)
	}
	return colors
}
