package bptree

import (
	"fmt"

	"github.com/fulldump/hashdb/value"
)

// NodeDocument is the persisted shape of a node:
//
//	{"is_leaf": true, "keys": [["Ann", ["id1", "id2"]]], "children": []}
//
// Internal nodes store their separators with an empty id list.
type NodeDocument struct {
	IsLeaf   bool            `json:"is_leaf" msgpack:"is_leaf"`
	Keys     [][]any         `json:"keys" msgpack:"keys"`
	Children []*NodeDocument `json:"children" msgpack:"children"`
}

func (t *Tree) Document() *NodeDocument {
	return t.document(t.root)
}

func (t *Tree) document(p int) *NodeDocument {
	n := t.nodes[p]

	d := &NodeDocument{
		IsLeaf:   n.leaf,
		Keys:     make([][]any, 0, len(n.keys)),
		Children: []*NodeDocument{},
	}
	for _, e := range n.keys {
		ids := []string{}
		if n.leaf {
			ids = append(ids, e.IDs...)
		}
		d.Keys = append(d.Keys, []any{e.Value, ids})
	}
	for _, c := range n.children {
		d.Children = append(d.Children, t.document(c))
	}

	return d
}

// FromDocument rebuilds a tree with exactly the node shape of d.
func FromDocument(d *NodeDocument, order int) (*Tree, error) {
	t := New(order)
	t.nodes = t.nodes[:0]

	if d == nil {
		t.root = t.alloc(&node{leaf: true, parent: -1})
		return t, nil
	}

	root, err := t.load(d, -1)
	if err != nil {
		return nil, err
	}
	t.root = root

	return t, nil
}

func (t *Tree) load(d *NodeDocument, parent int) (int, error) {
	n := &node{
		leaf:   d.IsLeaf,
		parent: parent,
		keys:   make([]Entry, 0, len(d.Keys)),
	}

	for i, k := range d.Keys {
		if len(k) == 0 {
			return 0, fmt.Errorf("key %d: empty", i)
		}
		e := Entry{Value: value.Normalize(k[0])}
		if len(k) > 1 {
			ids, err := decodeIDs(k[1])
			if err != nil {
				return 0, fmt.Errorf("key %d: %w", i, err)
			}
			if n.leaf {
				e.IDs = ids
			}
		}
		if i > 0 && value.Compare(n.keys[i-1].Value, e.Value) >= 0 {
			return 0, fmt.Errorf("key %d: '%s' out of order", i, value.String(e.Value))
		}
		n.keys = append(n.keys, e)
	}

	if n.leaf {
		if len(d.Children) > 0 {
			return 0, fmt.Errorf("leaf with %d children", len(d.Children))
		}
		return t.alloc(n), nil
	}

	if len(d.Children) != len(d.Keys)+1 {
		return 0, fmt.Errorf("internal node with %d keys and %d children", len(d.Keys), len(d.Children))
	}

	p := t.alloc(n)
	for _, child := range d.Children {
		c, err := t.load(child, p)
		if err != nil {
			return 0, err
		}
		n.children = append(n.children, c)
	}

	return p, nil
}

func decodeIDs(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return list, nil
	case []any:
		ids := make([]string, 0, len(list))
		for _, id := range list {
			s, ok := id.(string)
			if !ok {
				return nil, fmt.Errorf("id %v is not a string", id)
			}
			ids = append(ids, s)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("ids should be a list, got %T", v)
}
