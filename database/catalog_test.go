package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulldump/biff"
	. "github.com/fulldump/biff"

	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/storage"
	"github.com/fulldump/hashdb/transaction"
)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprint("id", n)
	}
}

func newTestCatalog(dir string) *Catalog {
	c := New(&Config{
		Dir:         dir,
		Buckets:     4,
		IDGenerator: sequence(),
	})
	err := c.Load()
	if err != nil {
		panic(err)
	}
	return c
}

func TestCatalog(t *testing.T) {
	biff.Alternative("Catalog with shop.users", func(a *biff.A) {

		dir := t.TempDir()
		c := newTestCatalog(dir)
		AssertEqual(c.GetStatus(), StatusOperating)

		shop, err := c.CreateDatabase("shop")
		AssertNil(err)
		users, err := shop.CreateCollection("users")
		AssertNil(err)
		users.Insert(map[string]any{"name": "Ann"})
		AssertNil(users.CreateIndex("name"))

		a.Alternative("reload from disk", func(a *biff.A) {
			reloaded := newTestCatalog(dir)
			AssertEqual(reloaded.ListDatabases(), []string{"shop"})

			db, err := reloaded.GetDatabase("shop")
			AssertNil(err)
			AssertEqual(db.ListCollections(), []string{"users"})

			col, err := db.GetCollection("users")
			AssertNil(err)
			AssertEqual(col.Len(), 1)
			AssertEqual(col.Indexes(), []string{"name"})
		})

		a.Alternative("files", func(a *biff.A) {
			names := []string{}
			AssertNil(storage.ReadFile(filepath.Join(dir, "databases.json"), storage.JSON, &names))
			AssertEqual(names, []string{"shop"})

			AssertNil(storage.ReadFile(filepath.Join(dir, "shop", "database.json"), storage.JSON, &names))
			AssertEqual(names, []string{"users"})

			for _, name := range []string{"users.json", "users_indexes.json", "users_name_index.json"} {
				AssertTrue(storage.Exists(filepath.Join(dir, "shop", name)))
			}
		})

		a.Alternative("duplicated names", func(a *biff.A) {
			_, err := c.CreateDatabase("shop")
			AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))

			_, err = shop.CreateCollection("users")
			AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
		})

		a.Alternative("invalid names", func(a *biff.A) {
			for _, name := range []string{"", "  ", "__backup", "a/b", ".hidden"} {
				_, err := c.CreateDatabase(name)
				AssertTrue(errors.Is(err, dberror.ErrInvalidArgument))
			}
			_, err := shop.CreateCollection("")
			AssertTrue(errors.Is(err, dberror.ErrInvalidArgument))
		})

		a.Alternative("not found", func(a *biff.A) {
			_, err := c.GetDatabase("blog")
			AssertTrue(errors.Is(err, dberror.ErrNotFound))
			_, err = shop.GetCollection("orders")
			AssertTrue(errors.Is(err, dberror.ErrNotFound))
			AssertTrue(errors.Is(c.DropDatabase("blog"), dberror.ErrNotFound))
			AssertTrue(errors.Is(shop.DropCollection("orders"), dberror.ErrNotFound))
		})

		a.Alternative("drop collection", func(a *biff.A) {
			AssertNil(shop.DropCollection("users"))
			AssertEqual(shop.ListCollections(), []string{})

			entries, _ := os.ReadDir(filepath.Join(dir, "shop"))
			AssertEqual(len(entries), 1) // database.json
		})

		a.Alternative("rename collection", func(a *biff.A) {
			AssertNil(shop.RenameCollection("users", "customers"))
			AssertEqual(shop.ListCollections(), []string{"customers"})
			AssertTrue(storage.Exists(filepath.Join(dir, "shop", "customers_name_index.json")))

			reloaded := newTestCatalog(dir)
			db, _ := reloaded.GetDatabase("shop")
			col, err := db.GetCollection("customers")
			AssertNil(err)
			AssertEqual(col.Len(), 1)
		})

		a.Alternative("drop database", func(a *biff.A) {
			AssertNil(c.DropDatabase("shop"))
			AssertEqual(c.ListDatabases(), []string{})
			AssertFalse(storage.Exists(filepath.Join(dir, "shop")))
		})

		a.Alternative("rename database", func(a *biff.A) {
			AssertNil(c.RenameDatabase("shop", "store"))
			AssertEqual(c.ListDatabases(), []string{"store"})

			db, err := c.GetDatabase("store")
			AssertNil(err)
			col, err := db.GetCollection("users")
			AssertNil(err)
			AssertEqual(col.Len(), 1)

			// still writable at its new place
			_, err = col.Insert(map[string]any{"name": "Bo"})
			AssertNil(err)
			AssertTrue(storage.Exists(filepath.Join(dir, "store", "users.json")))
			AssertFalse(storage.Exists(filepath.Join(dir, "shop")))
		})
	})
}

func TestCatalog_Transactions(t *testing.T) {
	biff.Alternative("Begin", func(a *biff.A) {

		dir := t.TempDir()
		c := newTestCatalog(dir)
		shop, _ := c.CreateDatabase("shop")
		users, _ := shop.CreateCollection("users")
		users.Insert(map[string]any{"name": "Ann"})

		AssertNil(c.Begin())
		AssertTrue(c.InTransaction())

		users.Insert(map[string]any{"name": "Bo"})
		shop.CreateCollection("orders")
		c.CreateDatabase("blog")

		a.Alternative("Rollback", func(a *biff.A) {
			AssertNil(c.Rollback())
			AssertFalse(c.InTransaction())

			AssertEqual(c.ListDatabases(), []string{"shop"})
			db, _ := c.GetDatabase("shop")
			AssertEqual(db.ListCollections(), []string{"users"})
			col, _ := db.GetCollection("users")
			AssertEqual(col.Len(), 1)
			AssertFalse(storage.Exists(filepath.Join(dir, "blog")))
		})

		a.Alternative("Commit", func(a *biff.A) {
			AssertNil(c.Commit())
			AssertFalse(c.InTransaction())

			reloaded := newTestCatalog(dir)
			AssertEqual(reloaded.ListDatabases(), []string{"blog", "shop"})
			db, _ := reloaded.GetDatabase("shop")
			col, _ := db.GetCollection("users")
			AssertEqual(col.Len(), 2)
		})

		a.Alternative("Stop abandons the transaction", func(a *biff.A) {
			AssertNil(c.Stop())
			AssertEqual(c.GetStatus(), StatusClosing)
			AssertFalse(storage.Exists(filepath.Join(dir, "__backup")))

			reloaded := newTestCatalog(dir)
			AssertEqual(reloaded.ListDatabases(), []string{"blog", "shop"})
		})

		a.Alternative("Crash leaves a backup that is discarded on load", func(a *biff.A) {
			AssertTrue(storage.Exists(filepath.Join(dir, "__backup")))

			reloaded := newTestCatalog(dir)
			AssertFalse(storage.Exists(filepath.Join(dir, "__backup")))
			AssertEqual(reloaded.ListDatabases(), []string{"blog", "shop"})
		})
	})
}

func TestCatalog_NoTransaction(t *testing.T) {

	c := newTestCatalog(t.TempDir())

	AssertTrue(errors.Is(c.Commit(), transaction.ErrNoTransaction))
	AssertTrue(errors.Is(c.Rollback(), transaction.ErrNoTransaction))
}

func TestCatalog_StartStop(t *testing.T) {

	c := New(&Config{Dir: t.TempDir()})

	done := make(chan error)
	go func() {
		done <- c.Start()
	}()

	for c.GetStatus() != StatusOperating {
		time.Sleep(time.Millisecond)
	}

	AssertNil(c.Stop())
	AssertNil(<-done)

	// twice
	AssertNil(c.Stop())
}

func TestCatalog_StatusWhileStopping(t *testing.T) {

	c := newTestCatalog(t.TempDir())

	seen := make(chan string)
	go func() {
		for c.GetStatus() == StatusOperating {
		}
		seen <- c.GetStatus()
	}()

	AssertNil(c.Stop())
	AssertEqual(<-seen, StatusClosing)
}
