// Unit tests for the ordered tree scaffold
// Covers walk order, depth numbering, stable sibling sort, and Find
package spantree

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visit struct {
	value string
	depth int
}

func collect(n *Node[string]) []visit {
	var out []visit
	n.Walk(func(v string, _ *Node[string], depth int) {
		out = append(out, visit{v, depth})
	})
	return out
}

func TestWalk_PreOrder(t *testing.T) {
	root := New("root")
	a := New("a").AddValue("a1").AddValue("a2")
	b := New("b").AddChild(New("b1").AddValue("b1x"))
	root.AddChild(a).AddChild(b)

	assert.Equal(t, []visit{
		{"root", 0},
		{"a", 1},
		{"a1", 2},
		{"a2", 2},
		{"b", 1},
		{"b1", 2},
		{"b1x", 3},
	}, collect(root))
}

func TestWalk_FromSubtree(t *testing.T) {
	root := New("root")
	child := New("child").AddValue("grandchild")
	root.AddChild(child)

	assert.Equal(t, []visit{{"child", 0}, {"grandchild", 1}}, collect(child))
}

func TestWalk_SingleNode(t *testing.T) {
	assert.Equal(t, []visit{{"only", 0}}, collect(New("only")))
}

func TestWalk_DeepChain(t *testing.T) {
	root := New(0)
	cur := root
	for i := 1; i <= 100000; i++ {
		next := New(i)
		cur.AddChild(next)
		cur = next
	}

	maxDepth := 0
	root.Walk(func(v int, _ *Node[int], depth int) {
		if depth > maxDepth {
			maxDepth = depth
		}
	})
	assert.Equal(t, 100000, maxDepth)
	assert.Equal(t, 100001, root.Size())
}

func TestSortChildren_Stable(t *testing.T) {
	type item struct {
		name  string
		start int
	}
	root := New(item{"root", 0})
	root.AddValue(item{"late", 30})
	root.AddValue(item{"tie-first", 10})
	root.AddValue(item{"early", 5})
	root.AddValue(item{"tie-second", 10})

	root.SortChildren(func(a, b item) int { return cmp.Compare(a.start, b.start) })

	var names []string
	for _, c := range root.Children() {
		names = append(names, c.Value.name)
	}
	assert.Equal(t, []string{"early", "tie-first", "tie-second", "late"}, names)
}

func TestSortChildren_NoChildren(t *testing.T) {
	n := New("leaf")
	n.SortChildren(func(a, b string) int { return cmp.Compare(a, b) })
	assert.Equal(t, 0, n.Len())
}

func TestFind(t *testing.T) {
	root := New("root")
	root.AddChild(New("a").AddValue("target"))
	root.AddValue("b")

	found := root.Find(func(v string) bool { return v == "target" })
	require.NotNil(t, found)
	assert.Equal(t, "target", found.Value)

	assert.Nil(t, root.Find(func(v string) bool { return v == "missing" }))
}
