package database

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulldump/hashdb/collection"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/storage"
	"github.com/fulldump/hashdb/transaction"
	"github.com/fulldump/hashdb/utils"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

type Config struct {
	Dir         string
	Codec       storage.Codec
	Buckets     int
	IndexOrder  int
	BackupDir   string
	Logger      *slog.Logger
	IDGenerator func() string
}

// Catalog is the root of the data folder: the databases it holds and the
// transaction protecting all of them.
type Catalog struct {
	config       *Config
	status       atomic.Value
	logger       *slog.Logger
	databases    map[string]*Database
	transactions *transaction.Manager
	exit         chan struct{}
	exitOnce     sync.Once
}

func New(config *Config) *Catalog {
	if config.Codec == nil {
		config.Codec = storage.JSON
	}
	if config.BackupDir == "" {
		config.BackupDir = transaction.DefaultBackupDir
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &Catalog{
		config:    config,
		logger:    config.Logger,
		databases: map[string]*Database{},
		transactions: transaction.New(transaction.Config{
			Root:      config.Dir,
			BackupDir: config.BackupDir,
			Logger:    config.Logger,
		}),
		exit: make(chan struct{}),
	}
	c.status.Store(StatusOpening)

	return c
}

func (c *Catalog) GetStatus() string {
	return c.status.Load().(string)
}

func (c *Catalog) collectionConfig() collection.Config {
	return collection.Config{
		Codec:       c.config.Codec,
		Buckets:     c.config.Buckets,
		IndexOrder:  c.config.IndexOrder,
		Logger:      c.config.Logger,
		IDGenerator: c.config.IDGenerator,
	}
}

func (c *Catalog) listFile() string {
	return filepath.Join(c.config.Dir, "databases"+c.config.Codec.Extension())
}

func (c *Catalog) persist() error {
	return storage.WriteFile(c.listFile(), c.config.Codec, c.ListDatabases())
}

// Load reads every database listed in the data folder. A backup left by a
// process that died in the middle of a transaction is discarded.
func (c *Catalog) Load() error {
	c.logger.Info("loading data", "dir", c.config.Dir)
	t0 := time.Now()

	err := os.MkdirAll(c.config.Dir, 0755)
	if err != nil {
		c.status.Store(StatusClosing)
		return dberror.IOFailure(err, "create data folder")
	}

	discarded, err := c.transactions.DiscardStale()
	if err != nil {
		c.status.Store(StatusClosing)
		return err
	}
	if discarded {
		c.logger.Warn("found the backup of an unfinished transaction, discarded")
	}

	err = c.load()
	if err != nil {
		c.status.Store(StatusClosing)
		return err
	}

	c.status.Store(StatusOperating)
	c.logger.Info("data loaded", "databases", len(c.databases), "elapsed", time.Since(t0))

	return nil
}

func (c *Catalog) load() error {
	databases := map[string]*Database{}

	names := []string{}
	err := storage.ReadFile(c.listFile(), c.config.Codec, &names)
	if err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return err
	}

	for _, name := range names {
		db, err := openDatabase(c.config.Dir, name, c.collectionConfig())
		if err != nil {
			return err
		}
		databases[name] = db
	}

	c.databases = databases

	return nil
}

// Start loads the data and blocks until Stop is called.
func (c *Catalog) Start() error {

	err := c.Load()
	if err != nil {
		return err
	}

	<-c.exit

	return nil
}

// Stop runs the transaction shutdown hook and releases Start.
func (c *Catalog) Stop() error {
	defer c.exitOnce.Do(func() { close(c.exit) })

	c.status.Store(StatusClosing)

	return c.transactions.Close()
}

func (c *Catalog) validateName(name string) error {
	err := collection.ValidateName(name)
	if err != nil {
		return err
	}
	if name == c.config.BackupDir || name == c.config.BackupDir+".restore" {
		return dberror.InvalidArgument("name '%s' is reserved", name)
	}
	return nil
}

// ListDatabases returns the database names sorted.
func (c *Catalog) ListDatabases() []string {
	return utils.GetKeys(c.databases)
}

func (c *Catalog) CreateDatabase(name string) (*Database, error) {
	err := c.validateName(name)
	if err != nil {
		return nil, err
	}
	if _, exists := c.databases[name]; exists {
		return nil, dberror.AlreadyExists("database '%s'", name)
	}

	db, err := createDatabase(c.config.Dir, name, c.collectionConfig())
	if err != nil {
		return nil, err
	}

	c.databases[name] = db

	err = c.persist()
	if err != nil {
		delete(c.databases, name)
		db.drop()
		return nil, err
	}

	c.logger.Info("database created", "database", name)

	return db, nil
}

func (c *Catalog) GetDatabase(name string) (*Database, error) {
	db, exists := c.databases[name]
	if !exists {
		return nil, dberror.NotFound("database '%s'", name)
	}
	return db, nil
}

func (c *Catalog) DropDatabase(name string) error {
	db, exists := c.databases[name]
	if !exists {
		return dberror.NotFound("database '%s'", name)
	}

	delete(c.databases, name)

	err := c.persist()
	if err != nil {
		c.databases[name] = db
		return err
	}

	err = db.drop()
	if err != nil {
		return err
	}

	c.logger.Info("database dropped", "database", name)

	return nil
}

func (c *Catalog) RenameDatabase(name, newName string) error {
	err := c.validateName(newName)
	if err != nil {
		return err
	}
	db, exists := c.databases[name]
	if !exists {
		return dberror.NotFound("database '%s'", name)
	}
	if _, exists := c.databases[newName]; exists {
		return dberror.AlreadyExists("database '%s'", newName)
	}

	err = db.rename(c.config.Dir, newName)
	if err != nil {
		return err
	}

	delete(c.databases, name)
	c.databases[newName] = db

	err = c.persist()
	if err != nil {
		return err
	}

	c.logger.Info("database renamed", "database", name, "new_name", newName)

	return nil
}

func (c *Catalog) Begin() error {
	return c.transactions.Begin()
}

func (c *Catalog) Commit() error {
	return c.transactions.Commit()
}

// Rollback restores the files of the data folder and reloads every database
// from them, so memory matches disk again.
func (c *Catalog) Rollback() error {
	err := c.transactions.Rollback()
	if err != nil {
		return err
	}
	return c.load()
}

func (c *Catalog) InTransaction() bool {
	return c.transactions.Active()
}
