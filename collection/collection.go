package collection

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fulldump/hashdb/bptree"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/query"
	"github.com/fulldump/hashdb/recordstore"
	"github.com/fulldump/hashdb/storage"
	"github.com/fulldump/hashdb/value"
)

type Config struct {
	Codec       storage.Codec
	Buckets     int
	IndexOrder  int
	Logger      *slog.Logger
	IDGenerator func() string
}

func (c Config) withDefaults() Config {
	if c.Codec == nil {
		c.Codec = storage.JSON
	}
	if c.Buckets <= 0 {
		c.Buckets = recordstore.DefaultBuckets
	}
	if c.IndexOrder <= 0 {
		c.IndexOrder = bptree.DefaultOrder
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.IDGenerator == nil {
		c.IDGenerator = uuid.NewString
	}
	return c
}

type Record struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// Collection is a named set of records persisted in dir, with its secondary
// indexes. It is not safe for concurrent use.
type Collection struct {
	dir     string
	name    string
	config  Config
	logger  *slog.Logger
	store   *recordstore.RecordStore
	indexes map[string]*bptree.Tree
}

// ValidateName rejects names that cannot be used as a file name prefix.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return dberror.InvalidArgument("name should not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return dberror.InvalidArgument("name '%s' is not allowed", name)
	}
	return nil
}

// Create writes the files of a new empty collection.
func Create(dir, name string, config Config) (*Collection, error) {
	err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	c := newCollection(dir, name, config)
	if storage.Exists(c.dataFile()) {
		return nil, dberror.AlreadyExists("collection '%s'", name)
	}
	err = claim(c.indexListFile())
	if err != nil {
		return nil, err
	}

	err = c.persistData()
	if err != nil {
		return nil, err
	}
	err = c.persistIndexList()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Open loads a collection and its indexes from dir. An index whose file is
// missing or unreadable is rebuilt from the records.
func Open(dir, name string, config Config) (*Collection, error) {
	err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	c := newCollection(dir, name, config)

	document := map[string]map[string]any{}
	err = storage.ReadFile(c.dataFile(), c.config.Codec, &document)
	if errors.Is(err, dberror.ErrNotFound) {
		return nil, dberror.NotFound("collection '%s'", name)
	}
	if err != nil {
		return nil, err
	}
	for id, attributes := range document {
		if attributes == nil {
			attributes = map[string]any{}
		}
		c.store.Insert(id, value.NormalizeMap(attributes))
	}

	indexed := []string{}
	err = storage.ReadFile(c.indexListFile(), c.config.Codec, &indexed)
	if err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return nil, err
	}

	for _, attribute := range indexed {
		tree, err := c.loadIndex(attribute)
		if err != nil {
			c.logger.Warn("rebuilding index", "attribute", attribute, "error", err)
			tree = c.buildIndex(attribute)
			if err := c.persistIndex(attribute, tree); err != nil {
				return nil, err
			}
		}
		c.indexes[attribute] = tree
	}

	return c, nil
}

func newCollection(dir, name string, config Config) *Collection {
	config = config.withDefaults()
	return &Collection{
		dir:     dir,
		name:    name,
		config:  config,
		logger:  config.Logger.With("collection", name),
		store:   recordstore.New(config.Buckets),
		indexes: map[string]*bptree.Tree{},
	}
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Len() int {
	return c.store.Len()
}

// Files lists every file owned by the collection.
func (c *Collection) Files() []string {
	files := []string{c.dataFile(), c.indexListFile()}
	for _, attribute := range c.Indexes() {
		files = append(files, c.indexFile(attribute))
	}
	return files
}

func (c *Collection) dataFile() string {
	return filepath.Join(c.dir, c.name+c.config.Codec.Extension())
}

func (c *Collection) indexListFile() string {
	return filepath.Join(c.dir, c.name+"_indexes"+c.config.Codec.Extension())
}

func (c *Collection) indexFile(attribute string) string {
	return filepath.Join(c.dir, c.name+"_"+attribute+"_index"+c.config.Codec.Extension())
}

// claim fails when filename is already on disk. Names are plain prefixes, so
// a file of another collection may live at the same path.
func claim(filename string) error {
	if storage.Exists(filename) {
		return dberror.AlreadyExists("file '%s' belongs to another collection", filepath.Base(filename))
	}
	return nil
}

func (c *Collection) persistData() error {
	return storage.WriteFile(c.dataFile(), c.config.Codec, c.store.Document())
}

// validateAttributes checks names and values. nil values are only accepted
// when allowNil is set (they remove the attribute on update).
func validateAttributes(attributes map[string]any, allowNil bool) error {
	for name, v := range attributes {
		if name == "" {
			return dberror.InvalidArgument("attribute name should not be empty")
		}
		if name == query.IDField {
			return dberror.InvalidArgument("attribute name '%s' is reserved", name)
		}
		if v == nil {
			if allowNil {
				continue
			}
			return dberror.InvalidArgument("attribute '%s' has no value", name)
		}
		if _, isString := v.(string); isString {
			continue
		}
		if _, isBool := v.(bool); isBool {
			continue
		}
		if _, isNumber := value.Number(v); !isNumber {
			return dberror.InvalidArgument("attribute '%s' should be a string or a number, got %T", name, v)
		}
	}
	return nil
}

// Insert stores a new record under a freshly generated id.
func (c *Collection) Insert(attributes map[string]any) (*Record, error) {
	err := validateAttributes(attributes, false)
	if err != nil {
		return nil, err
	}

	id := c.config.IDGenerator()
	if c.store.Has(id) {
		return nil, dberror.AlreadyExists("record '%s'", id)
	}

	attributes = value.NormalizeMap(maps.Clone(attributes))
	if attributes == nil {
		attributes = map[string]any{}
	}
	c.store.Insert(id, attributes)

	touched := c.indexRecord(id, attributes)

	err = c.persistData()
	if err != nil {
		return nil, err
	}
	err = c.persistIndexes(touched)
	if err != nil {
		return nil, err
	}

	return &Record{ID: id, Attributes: maps.Clone(attributes)}, nil
}

// Update applies changes to every record matching filter and returns how many
// were updated. A nil change removes the attribute.
func (c *Collection) Update(filter string, changes map[string]any) (int, error) {
	err := validateAttributes(changes, true)
	if err != nil {
		return 0, err
	}

	expr, err := query.Compile(filter)
	if err != nil {
		return 0, err
	}

	selection := query.Select(c.source(), expr)
	if len(selection.Matches) == 0 {
		return 0, nil
	}

	touched := map[string]bool{}
	for _, m := range selection.Matches {
		updated := maps.Clone(m.Attributes)
		for name, v := range changes {
			if v == nil {
				delete(updated, name)
				continue
			}
			updated[name] = value.Normalize(v)
		}

		for attribute := range c.unindexRecord(m.ID, m.Attributes) {
			touched[attribute] = true
		}
		c.store.Insert(m.ID, updated)
		for attribute := range c.indexRecord(m.ID, updated) {
			touched[attribute] = true
		}
	}

	err = c.persistData()
	if err != nil {
		return 0, err
	}
	err = c.persistIndexes(touched)
	if err != nil {
		return len(selection.Matches), err
	}

	return len(selection.Matches), nil
}

// Delete removes every record matching filter and returns how many were
// removed.
func (c *Collection) Delete(filter string) (int, error) {
	expr, err := query.Compile(filter)
	if err != nil {
		return 0, err
	}

	selection := query.Select(c.source(), expr)
	if len(selection.Matches) == 0 {
		return 0, nil
	}

	touched := map[string]bool{}
	for _, m := range selection.Matches {
		c.store.Remove(m.ID)
		for attribute := range c.unindexRecord(m.ID, m.Attributes) {
			touched[attribute] = true
		}
	}

	err = c.persistData()
	if err != nil {
		return 0, err
	}
	err = c.persistIndexes(touched)
	if err != nil {
		return len(selection.Matches), err
	}

	return len(selection.Matches), nil
}

func (c *Collection) Get(id string) (*Record, error) {
	attributes, found := c.store.Get(id)
	if !found {
		return nil, dberror.NotFound("record '%s'", id)
	}
	return &Record{ID: id, Attributes: maps.Clone(attributes)}, nil
}

// All returns every record in storage order.
func (c *Collection) All() []*Record {
	records := make([]*Record, 0, c.store.Len())
	c.store.Iterate(func(id string, attributes recordstore.Attributes) bool {
		records = append(records, &Record{ID: id, Attributes: maps.Clone(attributes)})
		return true
	})
	return records
}

// FindBy returns the records whose attribute equals v, through the index
// when attribute is indexed.
func (c *Collection) FindBy(attribute string, v any) []*Record {
	records := []*Record{}

	if tree, indexed := c.indexes[attribute]; indexed {
		for _, id := range tree.Search(v) {
			attributes, found := c.store.Get(id)
			if !found {
				c.logger.Warn("index points to a missing record", "attribute", attribute, "id", id)
				continue
			}
			records = append(records, &Record{ID: id, Attributes: maps.Clone(attributes)})
		}
		return records
	}

	c.store.Iterate(func(id string, attributes recordstore.Attributes) bool {
		stored, exists := attributes[attribute]
		if exists && value.Equal(stored, v) {
			records = append(records, &Record{ID: id, Attributes: maps.Clone(attributes)})
		}
		return true
	})
	return records
}

// Query runs a filter with sorting, pagination and projection.
func (c *Collection) Query(options query.Options) (*query.Result, error) {
	return query.Run(c.source(), options)
}

// Drop removes every file of the collection.
func (c *Collection) Drop() error {
	for _, filename := range c.Files() {
		err := storage.Remove(filename)
		if err != nil {
			return fmt.Errorf("drop collection '%s': %w", c.name, err)
		}
	}
	c.store = recordstore.New(c.config.Buckets)
	c.indexes = map[string]*bptree.Tree{}
	return nil
}

// Rename moves every file of the collection to the new name.
func (c *Collection) Rename(name string) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	renamed := newCollection(c.dir, name, c.config)
	if storage.Exists(renamed.dataFile()) {
		return dberror.AlreadyExists("collection '%s'", name)
	}

	moves := [][2]string{
		{c.dataFile(), renamed.dataFile()},
		{c.indexListFile(), renamed.indexListFile()},
	}
	for _, attribute := range c.Indexes() {
		moves = append(moves, [2]string{c.indexFile(attribute), renamed.indexFile(attribute)})
	}
	for _, move := range moves[1:] {
		err := claim(move[1])
		if err != nil {
			return err
		}
	}

	for _, move := range moves {
		err := storage.Rename(move[0], move[1])
		if err != nil {
			return fmt.Errorf("rename collection '%s': %w", c.name, err)
		}
	}

	c.name = name
	c.logger = c.config.Logger.With("collection", name)

	return nil
}

// source exposes the collection to the query engine.
func (c *Collection) source() query.Source {
	return (*source)(c)
}

type source Collection

func (s *source) Iterate(f func(id string, attributes map[string]any) bool) {
	s.store.Iterate(f)
}

func (s *source) Get(id string) (map[string]any, bool) {
	return s.store.Get(id)
}

func (s *source) Lookup(field string, v any) ([]string, bool) {
	tree, indexed := s.indexes[field]
	if !indexed {
		return nil, false
	}
	return tree.Search(v), true
}
