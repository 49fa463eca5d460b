package internal

import (
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// CommentTree walks a typed comment tree.
//
// Only top-level nodes of kind comment are roots; other top-level kinds, such as
// "more" placeholders, are dropped. Below the roots every node is visited
// whatever its kind.
type CommentTree struct {
	roots []*types.CommentNode
}

// NewCommentTree creates a CommentTree from the top-level nodes of a comment listing.
func NewCommentTree(top []*types.CommentNode) *CommentTree {
	roots := make([]*types.CommentNode, 0, len(top))
	for _, node := range top {
		if node != nil && node.Kind == types.NodeComment {
			roots = append(roots, node)
		}
	}
	return &CommentTree{roots: roots}
}

// Roots returns the admitted top-level comments.
func (ct *CommentTree) Roots() []*types.CommentNode {
	return ct.roots
}

type visit struct {
	node  *types.CommentNode
	depth int
}

// Walk calls fn for every node in depth-first pre-order, left to right. Depth is 0
// for roots. The traversal keeps its own stack, so tree depth is bounded only by memory.
func (ct *CommentTree) Walk(fn func(node *types.CommentNode, depth int)) {
	stack := make([]visit, 0, len(ct.roots))
	for i := len(ct.roots) - 1; i >= 0; i-- {
		stack = append(stack, visit{node: ct.roots[i]})
	}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fn(v.node, v.depth)

		// Push in reverse so the leftmost reply is popped first.
		for i := len(v.node.Replies) - 1; i >= 0; i-- {
			if reply := v.node.Replies[i]; reply != nil {
				stack = append(stack, visit{node: reply, depth: v.depth + 1})
			}
		}
	}
}

// Bodies returns every non-empty body in pre-order. A node's body precedes the
// bodies of all its descendants.
func (ct *CommentTree) Bodies() []string {
	bodies := make([]string, 0)
	ct.Walk(func(node *types.CommentNode, _ int) {
		if node.Body != "" {
			bodies = append(bodies, node.Body)
		}
	})
	return bodies
}

// Count returns the number of nodes reachable from the roots.
func (ct *CommentTree) Count() int {
	n := 0
	ct.Walk(func(*types.CommentNode, int) { n++ })
	return n
}

// Depth returns the maximum depth of the tree, 0 for roots only and -1 when empty.
func (ct *CommentTree) Depth() int {
	maxDepth := -1
	ct.Walk(func(_ *types.CommentNode, depth int) {
		if depth > maxDepth {
			maxDepth = depth
		}
	})
	return maxDepth
}
