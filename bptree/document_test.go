package bptree

import (
	"encoding/json"
	"fmt"
	"testing"

	. "github.com/fulldump/biff"
)

func TestDocument_Leaf(t *testing.T) {

	tree := New(3)
	tree.Insert("Ann", "1")
	tree.Insert("Ann", "2")

	AssertEqualJson(tree.Document(), map[string]any{
		"is_leaf":  true,
		"keys":     []any{[]any{"Ann", []any{"1", "2"}}},
		"children": []any{},
	})
}

func TestDocument_ReloadKeepsShape(t *testing.T) {

	tree := New(3)
	for i := 1; i <= 10; i++ {
		tree.Insert(float64(i), fmt.Sprint("id", i))
	}
	tree.Remove(4.0, "id4")

	// through a real encoding, as the collection does
	data, err := json.Marshal(tree.Document())
	AssertNil(err)
	d := &NodeDocument{}
	AssertNil(json.Unmarshal(data, d))

	reloaded, err := FromDocument(d, 3)
	AssertNil(err)

	AssertEqual(reloaded.Dump(), tree.Dump())
	checkInvariants(t, reloaded)

	// the reloaded tree keeps working, parents included
	for i := 11; i <= 30; i++ {
		reloaded.Insert(float64(i), fmt.Sprint("id", i))
	}
	checkInvariants(t, reloaded)
	AssertEqual(reloaded.Search(20), []string{"id20"})
	AssertEqual(reloaded.Search(4), []string{})
}

func TestFromDocument_Nil(t *testing.T) {

	tree, err := FromDocument(nil, 3)
	AssertNil(err)
	AssertEqual(tree.Len(), 0)

	tree.Insert("a", "1")
	AssertEqual(tree.Search("a"), []string{"1"})
}

func TestFromDocument_Corrupted(t *testing.T) {

	_, err := FromDocument(&NodeDocument{
		IsLeaf: false,
		Keys:   [][]any{{"m", []any{}}},
		Children: []*NodeDocument{
			{IsLeaf: true},
		},
	}, 3)
	AssertNotNil(err)

	_, err = FromDocument(&NodeDocument{
		IsLeaf: true,
		Keys:   [][]any{{"b", []any{"1"}}, {"a", []any{"2"}}},
	}, 3)
	AssertNotNil(err)

	_, err = FromDocument(&NodeDocument{
		IsLeaf: true,
		Keys:   [][]any{{"a", []any{1.0}}},
	}, 3)
	AssertNotNil(err)
}
