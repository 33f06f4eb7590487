// Generic ordered multi-way tree used to fix span traversal order
// Nodes hold a value and an ordered child list; walks run on an explicit stack
package spantree

import (
	"slices"
)

// Node is a tree node holding a value and its ordered children.
// There is no parent pointer.
type Node[T any] struct {
	Value    T
	children []*Node[T]
}

// New returns a leaf node holding value.
func New[T any](value T) *Node[T] {
	return &Node[T]{Value: value}
}

// AddChild appends child to n and returns n.
func (n *Node[T]) AddChild(child *Node[T]) *Node[T] {
	n.children = append(n.children, child)
	return n
}

// AddValue wraps value in a new leaf node, appends it and returns n.
func (n *Node[T]) AddValue(value T) *Node[T] {
	return n.AddChild(New(value))
}

// Children returns the node's children in their current order.
// The returned slice must not be modified.
func (n *Node[T]) Children() []*Node[T] {
	return n.children
}

// Len returns the number of direct children.
func (n *Node[T]) Len() int {
	return len(n.children)
}

// Size returns the number of nodes in the subtree rooted at n, including n.
func (n *Node[T]) Size() int {
	size := 0
	n.Walk(func(T, *Node[T], int) { size++ })
	return size
}

// SortChildren stably sorts the direct children of n by cmp applied to their values.
// Children comparing equal keep their insertion order.
func (n *Node[T]) SortChildren(cmp func(a, b T) int) {
	if len(n.children) < 2 {
		return
	}
	slices.SortStableFunc(n.children, func(a, b *Node[T]) int {
		return cmp(a.Value, b.Value)
	})
}

// WalkFunc is called for every visited node. depth is 0 for the node Walk was called on.
type WalkFunc[T any] func(value T, node *Node[T], depth int)

type frame[T any] struct {
	node  *Node[T]
	depth int
}

// Walk visits n and its descendants in pre-order: a node before its children,
// children in list order.
func (n *Node[T]) Walk(fn WalkFunc[T]) {
	stack := []frame[T]{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(top.node.Value, top.node, top.depth)

		// Reverse push so the first child is popped first
		for i := len(top.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame[T]{node: top.node.children[i], depth: top.depth + 1})
		}
	}
}

// Find returns the first node in walk order whose value satisfies pred, or nil.
func (n *Node[T]) Find(pred func(T) bool) *Node[T] {
	stack := []*Node[T]{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pred(top.Value) {
			return top
		}
		for i := len(top.children) - 1; i >= 0; i-- {
			stack = append(stack, top.children[i])
		}
	}
	return nil
}
