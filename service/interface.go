package service

import (
	"github.com/fulldump/hashdb/collection"
	"github.com/fulldump/hashdb/query"
)

type Servicer interface {
	ListDatabases() []string
	CreateDatabase(name string) (*DatabaseInfo, error)
	GetDatabase(name string) (*DatabaseInfo, error)
	DropDatabase(name string) error
	RenameDatabase(name, newName string) error

	ListCollections(database string) ([]*CollectionInfo, error)
	CreateCollection(database, name string) (*CollectionInfo, error)
	GetCollection(database, name string) (*CollectionInfo, error)
	DropCollection(database, name string) error
	RenameCollection(database, name, newName string) error

	Insert(database, collection string, attributes map[string]any) (*collection.Record, error)
	GetRecord(database, collection, id string) (*collection.Record, error)
	Update(database, collection, where string, changes map[string]any) (int, error)
	Delete(database, collection, where string) (int, error)
	Query(database, collection string, options query.Options) (*query.Result, error)
	Find(database, collection string, filter map[string]any, options query.Options) (*query.Result, error)
	FindBy(database, collection, attribute string, value any) ([]*collection.Record, error)

	CreateIndex(database, collection, attribute string) error
	DropIndex(database, collection, attribute string) error
	ListIndexes(database, collection string) ([]*IndexInfo, error)
	GetIndex(database, collection, attribute string) (*IndexInfo, error)

	Begin() error
	Commit() error
	Rollback() error
	InTransaction() bool
}

type DatabaseInfo struct {
	Name        string   `json:"name"`
	Collections []string `json:"collections"`
}

type CollectionInfo struct {
	Name    string   `json:"name"`
	Total   int      `json:"total"`
	Indexes []string `json:"indexes"`
}

type IndexInfo struct {
	collection.IndexStats
	Tree string `json:"tree,omitempty"`
}
