// Package bptree implements the multiway search tree behind secondary
// indexes. It maps attribute values to sets of record ids.
//
// Nodes live in an arena (a slice) and refer to each other by position, a
// node's parent included, so the tree holds no cyclic pointers. Leaves keep
// (value, ids) entries sorted by value.Compare; internal nodes keep separator
// values and one more child than separators. Lookups at value v take the first
// child whose separator is greater than v, or the last child.
//
// Removing entries never merges or rebalances nodes: leaves may become sparse
// or even empty, the tree stays searchable.
package bptree

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/fulldump/hashdb/value"
)

const (
	DefaultOrder = 3
	MinOrder     = 3
)

type Entry struct {
	Value any
	IDs   []string
}

type node struct {
	leaf     bool
	parent   int // -1 for the root
	keys     []Entry
	children []int
}

// search returns the position of v in n.keys, or where it would be inserted.
func (n *node) search(v any) (int, bool) {
	i := sort.Search(len(n.keys), func(i int) bool {
		return value.Compare(n.keys[i].Value, v) >= 0
	})
	return i, i < len(n.keys) && value.Equal(n.keys[i].Value, v)
}

type Tree struct {
	nodes []*node
	root  int
	order int
}

// New creates an empty tree. A node splits when it holds more than order
// entries (or separators).
func New(order int) *Tree {
	if order <= 0 {
		order = DefaultOrder
	}
	if order < MinOrder {
		order = MinOrder
	}

	t := &Tree{
		order: order,
	}
	t.root = t.alloc(&node{leaf: true, parent: -1})

	return t
}

func (t *Tree) Order() int {
	return t.order
}

func (t *Tree) alloc(n *node) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree) findLeaf(v any) int {
	p := t.root
	for {
		n := t.nodes[p]
		if n.leaf {
			return p
		}
		next := n.children[len(n.children)-1]
		for i, separator := range n.keys {
			if value.Compare(v, separator.Value) < 0 {
				next = n.children[i]
				break
			}
		}
		p = next
	}
}

// Insert adds id to the id-set of v. Inserting the same pair twice is a no-op.
func (t *Tree) Insert(v any, id string) {
	v = value.Normalize(v)

	p := t.findLeaf(v)
	leaf := t.nodes[p]

	i, found := leaf.search(v)
	if found {
		if !slices.Contains(leaf.keys[i].IDs, id) {
			leaf.keys[i].IDs = append(leaf.keys[i].IDs, id)
		}
		return
	}

	leaf.keys = slices.Insert(leaf.keys, i, Entry{Value: v, IDs: []string{id}})

	if len(leaf.keys) > t.order {
		t.split(p)
	}
}

func (t *Tree) split(p int) {
	n := t.nodes[p]
	mid := len(n.keys) / 2
	separator := n.keys[mid].Value

	sibling := &node{
		leaf:   n.leaf,
		parent: n.parent,
	}

	if n.leaf {
		// the promoted entry stays in the right leaf
		sibling.keys = slices.Clone(n.keys[mid:])
		n.keys = slices.Clip(n.keys[:mid])
	} else {
		sibling.keys = slices.Clone(n.keys[mid+1:])
		sibling.children = slices.Clone(n.children[mid+1:])
		n.keys = slices.Clip(n.keys[:mid])
		n.children = slices.Clip(n.children[:mid+1])
	}

	s := t.alloc(sibling)
	for _, c := range sibling.children {
		t.nodes[c].parent = s
	}

	if p == t.root {
		r := t.alloc(&node{
			leaf:     false,
			parent:   -1,
			keys:     []Entry{{Value: separator}},
			children: []int{p, s},
		})
		n.parent = r
		sibling.parent = r
		t.root = r
		return
	}

	parent := t.nodes[n.parent]
	i := slices.Index(parent.children, p)
	parent.keys = slices.Insert(parent.keys, i, Entry{Value: separator})
	parent.children = slices.Insert(parent.children, i+1, s)

	if len(parent.keys) > t.order {
		t.split(n.parent)
	}
}

// Search returns a copy of the id-set stored for v, empty if there is none.
func (t *Tree) Search(v any) []string {
	v = value.Normalize(v)
	leaf := t.nodes[t.findLeaf(v)]
	i, found := leaf.search(v)
	if !found {
		return []string{}
	}
	return slices.Clone(leaf.keys[i].IDs)
}

// Remove drops id from the id-set of v, and the entry itself once its set is
// empty. It reports whether anything changed.
func (t *Tree) Remove(v any, id string) bool {
	v = value.Normalize(v)
	leaf := t.nodes[t.findLeaf(v)]
	i, found := leaf.search(v)
	if !found {
		return false
	}

	j := slices.Index(leaf.keys[i].IDs, id)
	if j < 0 {
		return false
	}
	leaf.keys[i].IDs = slices.Delete(leaf.keys[i].IDs, j, j+1)
	if len(leaf.keys[i].IDs) == 0 {
		leaf.keys = slices.Delete(leaf.keys, i, i+1)
	}
	return true
}

// RemoveValue drops the entry for v whatever ids it holds.
func (t *Tree) RemoveValue(v any) bool {
	v = value.Normalize(v)
	leaf := t.nodes[t.findLeaf(v)]
	i, found := leaf.search(v)
	if !found {
		return false
	}
	leaf.keys = slices.Delete(leaf.keys, i, i+1)
	return true
}

// Ascend visits entries in value order until f returns false.
func (t *Tree) Ascend(f func(e Entry) bool) {
	t.ascend(t.root, f)
}

func (t *Tree) ascend(p int, f func(e Entry) bool) bool {
	n := t.nodes[p]
	if n.leaf {
		for _, e := range n.keys {
			if !f(Entry{Value: e.Value, IDs: slices.Clone(e.IDs)}) {
				return false
			}
		}
		return true
	}
	for _, c := range n.children {
		if !t.ascend(c, f) {
			return false
		}
	}
	return true
}

// Len is the number of distinct values.
func (t *Tree) Len() int {
	n := 0
	t.Ascend(func(Entry) bool {
		n++
		return true
	})
	return n
}

// Height counts levels, a lone leaf being 1.
func (t *Tree) Height() int {
	h := 1
	for p := t.root; !t.nodes[p].leaf; p = t.nodes[p].children[0] {
		h++
	}
	return h
}

// Dump renders the node structure, one node per line, for debugging.
func (t *Tree) Dump() string {
	sb := &strings.Builder{}
	t.dump(sb, t.root, 0)
	return sb.String()
}

func (t *Tree) dump(sb *strings.Builder, p, depth int) {
	n := t.nodes[p]
	sb.WriteString(strings.Repeat("    ", depth))
	if n.leaf {
		sb.WriteString("leaf")
		for _, e := range n.keys {
			fmt.Fprintf(sb, " %s%v", value.String(e.Value), e.IDs)
		}
		sb.WriteString("\n")
		return
	}
	sb.WriteString("node")
	for _, e := range n.keys {
		fmt.Fprintf(sb, " %s", value.String(e.Value))
	}
	sb.WriteString("\n")
	for _, c := range n.children {
		t.dump(sb, c, depth+1)
	}
}
