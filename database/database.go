package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fulldump/hashdb/collection"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/storage"
	"github.com/fulldump/hashdb/utils"
)

// Database is a folder of collections plus the list of their names.
type Database struct {
	dir         string
	name        string
	config      collection.Config
	logger      *slog.Logger
	collections map[string]*collection.Collection
}

func newDatabase(root, name string, config collection.Config) *Database {
	return &Database{
		dir:         filepath.Join(root, name),
		name:        name,
		config:      config,
		logger:      config.Logger.With("database", name),
		collections: map[string]*collection.Collection{},
	}
}

func createDatabase(root, name string, config collection.Config) (*Database, error) {
	db := newDatabase(root, name, config)

	err := os.Mkdir(db.dir, 0755)
	if errors.Is(err, os.ErrExist) {
		return nil, dberror.AlreadyExists("database folder '%s'", name)
	}
	if err != nil {
		return nil, dberror.IOFailure(err, "create database '%s'", name)
	}

	err = db.persist()
	if err != nil {
		os.RemoveAll(db.dir)
		return nil, err
	}

	return db, nil
}

func openDatabase(root, name string, config collection.Config) (*Database, error) {
	db := newDatabase(root, name, config)

	names := []string{}
	err := storage.ReadFile(db.listFile(), config.Codec, &names)
	if errors.Is(err, dberror.ErrNotFound) {
		return nil, dberror.NotFound("database '%s'", name)
	}
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		col, err := collection.Open(db.dir, name, config)
		if err != nil {
			return nil, fmt.Errorf("open database '%s': %w", db.name, err)
		}
		db.collections[name] = col
		db.logger.Debug("collection loaded", "collection", name, "records", col.Len(), "indexes", col.Indexes())
	}

	return db, nil
}

func (db *Database) Name() string {
	return db.name
}

func (db *Database) listFile() string {
	return filepath.Join(db.dir, "database"+db.config.Codec.Extension())
}

func (db *Database) persist() error {
	return storage.WriteFile(db.listFile(), db.config.Codec, db.ListCollections())
}

// ListCollections returns the collection names sorted.
func (db *Database) ListCollections() []string {
	return utils.GetKeys(db.collections)
}

func (db *Database) CreateCollection(name string) (*collection.Collection, error) {
	if _, exists := db.collections[name]; exists {
		return nil, dberror.AlreadyExists("collection '%s'", name)
	}

	col, err := collection.Create(db.dir, name, db.config)
	if err != nil {
		return nil, err
	}

	db.collections[name] = col

	err = db.persist()
	if err != nil {
		delete(db.collections, name)
		col.Drop()
		return nil, err
	}

	db.logger.Info("collection created", "collection", name)

	return col, nil
}

func (db *Database) GetCollection(name string) (*collection.Collection, error) {
	col, exists := db.collections[name]
	if !exists {
		return nil, dberror.NotFound("collection '%s'", name)
	}
	return col, nil
}

// DropCollection removes the collection with its data and every index file.
func (db *Database) DropCollection(name string) error {
	col, exists := db.collections[name]
	if !exists {
		return dberror.NotFound("collection '%s'", name)
	}

	delete(db.collections, name)

	err := db.persist()
	if err != nil {
		db.collections[name] = col
		return err
	}

	err = col.Drop()
	if err != nil {
		return err
	}

	db.logger.Info("collection dropped", "collection", name)

	return nil
}

func (db *Database) RenameCollection(name, newName string) error {
	col, exists := db.collections[name]
	if !exists {
		return dberror.NotFound("collection '%s'", name)
	}
	if _, exists := db.collections[newName]; exists {
		return dberror.AlreadyExists("collection '%s'", newName)
	}

	err := col.Rename(newName)
	if err != nil {
		return err
	}

	delete(db.collections, name)
	db.collections[newName] = col

	err = db.persist()
	if err != nil {
		return err
	}

	db.logger.Info("collection renamed", "collection", name, "new_name", newName)

	return nil
}

// drop removes the whole database folder.
func (db *Database) drop() error {
	err := os.RemoveAll(db.dir)
	if err != nil {
		return dberror.IOFailure(err, "drop database '%s'", db.name)
	}
	db.collections = map[string]*collection.Collection{}
	return nil
}

func (db *Database) rename(root, newName string) error {
	newDir := filepath.Join(root, newName)
	if storage.Exists(newDir) {
		return dberror.AlreadyExists("database folder '%s'", newName)
	}

	err := os.Rename(db.dir, newDir)
	if err != nil {
		return dberror.IOFailure(err, "rename database '%s'", db.name)
	}

	// collections keep their folder, reopen them from the new one
	renamed, err := openDatabase(root, newName, db.config)
	if err != nil {
		return err
	}
	*db = *renamed

	return nil
}
