package service

import (
	"sync"

	"github.com/fulldump/hashdb/collection"
	"github.com/fulldump/hashdb/database"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/query"
	"github.com/fulldump/hashdb/value"
)

// Service serializes every call reaching the catalog, which is not safe for
// concurrent use.
type Service struct {
	mutex   sync.Mutex
	catalog *database.Catalog
}

func NewService(catalog *database.Catalog) *Service {
	return &Service{
		catalog: catalog,
	}
}

func (s *Service) getCollection(databaseName, collectionName string) (*collection.Collection, error) {
	db, err := s.catalog.GetDatabase(databaseName)
	if err != nil {
		return nil, err
	}
	return db.GetCollection(collectionName)
}

func describeDatabase(db *database.Database) *DatabaseInfo {
	return &DatabaseInfo{
		Name:        db.Name(),
		Collections: db.ListCollections(),
	}
}

func describeCollection(col *collection.Collection) *CollectionInfo {
	return &CollectionInfo{
		Name:    col.Name(),
		Total:   col.Len(),
		Indexes: col.Indexes(),
	}
}

func (s *Service) ListDatabases() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.ListDatabases()
}

func (s *Service) CreateDatabase(name string) (*DatabaseInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	db, err := s.catalog.CreateDatabase(name)
	if err != nil {
		return nil, err
	}
	return describeDatabase(db), nil
}

func (s *Service) GetDatabase(name string) (*DatabaseInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	db, err := s.catalog.GetDatabase(name)
	if err != nil {
		return nil, err
	}
	return describeDatabase(db), nil
}

func (s *Service) DropDatabase(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.DropDatabase(name)
}

func (s *Service) RenameDatabase(name, newName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.RenameDatabase(name, newName)
}

func (s *Service) ListCollections(databaseName string) ([]*CollectionInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	db, err := s.catalog.GetDatabase(databaseName)
	if err != nil {
		return nil, err
	}

	result := []*CollectionInfo{}
	for _, name := range db.ListCollections() {
		col, err := db.GetCollection(name)
		if err != nil {
			return nil, err
		}
		result = append(result, describeCollection(col))
	}

	return result, nil
}

func (s *Service) CreateCollection(databaseName, name string) (*CollectionInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	db, err := s.catalog.GetDatabase(databaseName)
	if err != nil {
		return nil, err
	}

	col, err := db.CreateCollection(name)
	if err != nil {
		return nil, err
	}
	return describeCollection(col), nil
}

func (s *Service) GetCollection(databaseName, name string) (*CollectionInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, name)
	if err != nil {
		return nil, err
	}
	return describeCollection(col), nil
}

func (s *Service) DropCollection(databaseName, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	db, err := s.catalog.GetDatabase(databaseName)
	if err != nil {
		return err
	}
	return db.DropCollection(name)
}

func (s *Service) RenameCollection(databaseName, name, newName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	db, err := s.catalog.GetDatabase(databaseName)
	if err != nil {
		return err
	}
	return db.RenameCollection(name, newName)
}

func (s *Service) Insert(databaseName, collectionName string, attributes map[string]any) (*collection.Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	return col.Insert(attributes)
}

func (s *Service) GetRecord(databaseName, collectionName, id string) (*collection.Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	return col.Get(id)
}

func (s *Service) Update(databaseName, collectionName, where string, changes map[string]any) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return 0, err
	}
	return col.Update(where, changes)
}

func (s *Service) Delete(databaseName, collectionName, where string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return 0, err
	}
	return col.Delete(where)
}

func (s *Service) Query(databaseName, collectionName string, options query.Options) (*query.Result, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	return col.Query(options)
}

// FindBy returns the records whose attribute equals v.
func (s *Service) FindBy(databaseName, collectionName, attribute string, v any) ([]*collection.Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if attribute == "" {
		return nil, dberror.InvalidArgument("attribute should not be empty")
	}

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	return col.FindBy(attribute, value.Normalize(v)), nil
}

func (s *Service) CreateIndex(databaseName, collectionName, attribute string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return err
	}
	return col.CreateIndex(attribute)
}

func (s *Service) DropIndex(databaseName, collectionName, attribute string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return err
	}
	return col.DropIndex(attribute)
}

func (s *Service) ListIndexes(databaseName, collectionName string) ([]*IndexInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}

	result := []*IndexInfo{}
	for _, attribute := range col.Indexes() {
		stats, err := col.IndexStats(attribute)
		if err != nil {
			return nil, err
		}
		result = append(result, &IndexInfo{IndexStats: *stats})
	}

	return result, nil
}

// GetIndex returns the stats of an index together with its node dump.
func (s *Service) GetIndex(databaseName, collectionName, attribute string) (*IndexInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}

	stats, err := col.IndexStats(attribute)
	if err != nil {
		return nil, err
	}
	tree, err := col.DescribeIndex(attribute)
	if err != nil {
		return nil, err
	}

	return &IndexInfo{IndexStats: *stats, Tree: tree}, nil
}

func (s *Service) Begin() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.Begin()
}

func (s *Service) Commit() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.Commit()
}

func (s *Service) Rollback() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.Rollback()
}

func (s *Service) InTransaction() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.catalog.InTransaction()
}
