package collection

import (
	"fmt"

	"github.com/fulldump/hashdb/bptree"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/recordstore"
	"github.com/fulldump/hashdb/storage"
	"github.com/fulldump/hashdb/utils"
)

// CreateIndex builds an index on attribute from the existing records and
// keeps it up to date from then on. Records without the attribute are not
// indexed.
func (c *Collection) CreateIndex(attribute string) error {
	if attribute == "" {
		return dberror.InvalidArgument("index attribute should not be empty")
	}
	if _, exists := c.indexes[attribute]; exists {
		return dberror.AlreadyExists("index '%s'", attribute)
	}
	err := claim(c.indexFile(attribute))
	if err != nil {
		return err
	}

	tree := c.buildIndex(attribute)

	err = c.persistIndex(attribute, tree)
	if err != nil {
		return err
	}

	c.indexes[attribute] = tree

	err = c.persistIndexList()
	if err != nil {
		delete(c.indexes, attribute)
		storage.Remove(c.indexFile(attribute))
		return err
	}

	c.logger.Info("index created", "attribute", attribute, "values", tree.Len())

	return nil
}

func (c *Collection) DropIndex(attribute string) error {
	if _, exists := c.indexes[attribute]; !exists {
		return dberror.NotFound("index '%s'", attribute)
	}

	delete(c.indexes, attribute)

	err := c.persistIndexList()
	if err != nil {
		return err
	}

	return storage.Remove(c.indexFile(attribute))
}

// Indexes returns the indexed attributes sorted by name.
func (c *Collection) Indexes() []string {
	return utils.GetKeys(c.indexes)
}

// DescribeIndex renders the node structure of an index.
func (c *Collection) DescribeIndex(attribute string) (string, error) {
	tree, exists := c.indexes[attribute]
	if !exists {
		return "", dberror.NotFound("index '%s'", attribute)
	}
	return tree.Dump(), nil
}

type IndexStats struct {
	Attribute string `json:"attribute"`
	Values    int    `json:"values"`
	Height    int    `json:"height"`
	Order     int    `json:"order"`
}

func (c *Collection) IndexStats(attribute string) (*IndexStats, error) {
	tree, exists := c.indexes[attribute]
	if !exists {
		return nil, dberror.NotFound("index '%s'", attribute)
	}
	return &IndexStats{
		Attribute: attribute,
		Values:    tree.Len(),
		Height:    tree.Height(),
		Order:     tree.Order(),
	}, nil
}

func (c *Collection) buildIndex(attribute string) *bptree.Tree {
	tree := bptree.New(c.config.IndexOrder)
	c.store.Iterate(func(id string, attributes recordstore.Attributes) bool {
		if v, exists := attributes[attribute]; exists {
			tree.Insert(v, id)
		}
		return true
	})
	return tree
}

func (c *Collection) loadIndex(attribute string) (*bptree.Tree, error) {
	document := &bptree.NodeDocument{}
	err := storage.ReadFile(c.indexFile(attribute), c.config.Codec, document)
	if err != nil {
		return nil, err
	}

	tree, err := bptree.FromDocument(document, c.config.IndexOrder)
	if err != nil {
		return nil, fmt.Errorf("index '%s': %w", attribute, err)
	}

	return tree, nil
}

// indexRecord adds id to every index whose attribute the record has, and
// returns the attributes of the touched indexes.
func (c *Collection) indexRecord(id string, attributes map[string]any) map[string]bool {
	touched := map[string]bool{}
	for attribute, tree := range c.indexes {
		v, exists := attributes[attribute]
		if !exists {
			continue
		}
		tree.Insert(v, id)
		touched[attribute] = true
	}
	return touched
}

func (c *Collection) unindexRecord(id string, attributes map[string]any) map[string]bool {
	touched := map[string]bool{}
	for attribute, tree := range c.indexes {
		v, exists := attributes[attribute]
		if !exists {
			continue
		}
		if !tree.Remove(v, id) {
			c.logger.Warn("record was not indexed", "attribute", attribute, "id", id)
		}
		touched[attribute] = true
	}
	return touched
}

func (c *Collection) persistIndex(attribute string, tree *bptree.Tree) error {
	return storage.WriteFile(c.indexFile(attribute), c.config.Codec, tree.Document())
}

func (c *Collection) persistIndexList() error {
	return storage.WriteFile(c.indexListFile(), c.config.Codec, c.Indexes())
}

// persistIndexes writes the index files of the given attributes. The records
// are already stored at this point, so a failure leaves the indexes out of
// sync with the data and is reported as such.
func (c *Collection) persistIndexes(attributes map[string]bool) error {
	for _, attribute := range utils.GetKeys(attributes) {
		tree, exists := c.indexes[attribute]
		if !exists {
			continue
		}
		err := c.persistIndex(attribute, tree)
		if err != nil {
			c.logger.Error("index out of sync", "attribute", attribute, "error", err)
			return dberror.IndexInconsistency(err, "persist index '%s'", attribute)
		}
	}
	return nil
}
