package collection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/fulldump/biff"
	. "github.com/fulldump/biff"

	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/query"
	"github.com/fulldump/hashdb/storage"
)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprint("id", n)
	}
}

func testConfig() Config {
	return Config{
		Buckets:     4,
		IDGenerator: sequence(),
	}
}

func recordIDs(records []*Record) []string {
	ids := []string{}
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestInsert(t *testing.T) {
	Environment(func(dir string) {

		// Setup
		c, err := Create(dir, "users", testConfig())
		AssertNil(err)

		// Run
		record, err := c.Insert(map[string]any{"name": "Ann", "age": 30})
		AssertNil(err)

		// Check
		AssertEqual(record.ID, "id1")
		AssertEqual(record.Attributes, map[string]any{"name": "Ann", "age": 30.0})

		stored, err := c.Get("id1")
		AssertNil(err)
		AssertEqual(stored, record)

		document := map[string]map[string]any{}
		AssertNil(storage.ReadFile(filepath.Join(dir, "users.json"), storage.JSON, &document))
		AssertEqual(document, map[string]map[string]any{
			"id1": {"name": "Ann", "age": 30.0},
		})
	})
}

func TestInsert_Invalid(t *testing.T) {
	Environment(func(dir string) {

		c, _ := Create(dir, "users", testConfig())

		invalid := []map[string]any{
			{"address": map[string]any{"city": "Madrid"}},
			{"tags": []any{"a"}},
			{"ID": "x"},
			{"": "x"},
			{"name": nil},
		}
		for _, attributes := range invalid {
			_, err := c.Insert(attributes)
			AssertTrue(errors.Is(err, dberror.ErrInvalidArgument))
		}
		AssertEqual(c.Len(), 0)
	})
}

func TestCreate_Names(t *testing.T) {
	Environment(func(dir string) {

		_, err := Create(dir, "", testConfig())
		AssertTrue(errors.Is(err, dberror.ErrInvalidArgument))

		_, err = Create(dir, "../escape", testConfig())
		AssertTrue(errors.Is(err, dberror.ErrInvalidArgument))

		_, err = Create(dir, "users", testConfig())
		AssertNil(err)

		_, err = Create(dir, "users", testConfig())
		AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))

		_, err = Open(dir, "orders", testConfig())
		AssertTrue(errors.Is(err, dberror.ErrNotFound))
	})
}

func TestCreate_FileCollisions(t *testing.T) {
	biff.Alternative("users_x_index holds a record", func(a *biff.A) {
		Environment(func(dir string) {

			other, err := Create(dir, "users_x_index", testConfig())
			AssertNil(err)
			other.Insert(map[string]any{"x": "kept"})

			users, err := Create(dir, "users", testConfig())
			AssertNil(err)

			a.Alternative("index file would overwrite its data", func(a *biff.A) {
				err := users.CreateIndex("x")
				AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
				AssertEqual(users.Indexes(), []string{})

				reloaded, err := Open(dir, "users_x_index", testConfig())
				AssertNil(err)
				AssertEqual(reloaded.Len(), 1)
			})

			a.Alternative("data file of the index list", func(a *biff.A) {
				_, err := Create(dir, "users_indexes", testConfig())
				AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
			})

			a.Alternative("index list owned by another data file", func(a *biff.A) {
				_, err := Create(dir, "orders_indexes", testConfig())
				AssertNil(err)

				_, err = Create(dir, "orders", testConfig())
				AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
				AssertFalse(storage.Exists(filepath.Join(dir, "orders.json")))
			})

			a.Alternative("rename onto foreign files", func(a *biff.A) {
				people, _ := Create(dir, "people", testConfig())
				AssertNil(people.CreateIndex("x"))
				Create(dir, "fresh_x_index", testConfig())

				err := people.Rename("fresh")
				AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
				AssertEqual(people.Name(), "people")
				AssertTrue(storage.Exists(filepath.Join(dir, "people_x_index.json")))
			})
		})
	})
}

func TestQuery_AnnBo(t *testing.T) {
	biff.Alternative("Ann and Bo", func(a *biff.A) {
		Environment(func(dir string) {

			c, _ := Create(dir, "people", testConfig())
			c.Insert(map[string]any{"name": "Ann", "age": 30})
			c.Insert(map[string]any{"name": "Bo", "age": 25})
			AssertNil(c.CreateIndex("name"))

			a.Alternative("by name through the index", func(a *biff.A) {
				result, err := c.Query(query.Options{Filter: `name="Ann"`})
				AssertNil(err)
				AssertEqual(result.Plan, query.PlanIndex)
				AssertEqual(result.Rows, []query.Row{{"ID": "id1", "name": "Ann", "age": 30.0}})
			})

			a.Alternative("by age scanning", func(a *biff.A) {
				result, err := c.Query(query.Options{Filter: `age>"26"`, Fields: []string{"name"}})
				AssertNil(err)
				AssertEqual(result.Plan, query.PlanScan)
				AssertEqual(result.Rows, []query.Row{{"ID": "id1", "name": "Ann"}})
			})
		})
	})
}

func TestIndexMaintenance(t *testing.T) {
	biff.Alternative("Indexed by city", func(a *biff.A) {
		Environment(func(dir string) {

			c, _ := Create(dir, "people", testConfig())
			c.Insert(map[string]any{"name": "Ann", "city": "Madrid"})
			AssertNil(c.CreateIndex("city"))

			a.Alternative("insert after index", func(a *biff.A) {
				c.Insert(map[string]any{"name": "Bo", "city": "Madrid"})
				c.Insert(map[string]any{"name": "Cy"})
				AssertEqual(recordIDs(c.FindBy("city", "Madrid")), []string{"id1", "id2"})
			})

			a.Alternative("update moves the record in the index", func(a *biff.A) {
				n, err := c.Update(`name = Ann`, map[string]any{"city": "Paris"})
				AssertNil(err)
				AssertEqual(n, 1)
				AssertEqual(recordIDs(c.FindBy("city", "Madrid")), []string{})
				AssertEqual(recordIDs(c.FindBy("city", "Paris")), []string{"id1"})

				description, _ := c.DescribeIndex("city")
				AssertEqual(description, "leaf Paris[id1]\n")
			})

			a.Alternative("update removing the attribute", func(a *biff.A) {
				n, err := c.Update(`city = Madrid`, map[string]any{"city": nil})
				AssertNil(err)
				AssertEqual(n, 1)
				record, _ := c.Get("id1")
				AssertEqual(record.Attributes, map[string]any{"name": "Ann"})
				stats, _ := c.IndexStats("city")
				AssertEqual(stats.Values, 0)
			})

			a.Alternative("delete", func(a *biff.A) {
				n, err := c.Delete(`city = "Madrid"`)
				AssertNil(err)
				AssertEqual(n, 1)
				AssertEqual(c.Len(), 0)
				AssertEqual(recordIDs(c.FindBy("city", "Madrid")), []string{})

				_, err = c.Get("id1")
				AssertTrue(errors.Is(err, dberror.ErrNotFound))
			})

			a.Alternative("duplicated index", func(a *biff.A) {
				err := c.CreateIndex("city")
				AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
			})

			a.Alternative("drop index", func(a *biff.A) {
				AssertNil(c.DropIndex("city"))
				AssertEqual(c.Indexes(), []string{})
				AssertFalse(storage.Exists(filepath.Join(dir, "people_city_index.json")))

				err := c.DropIndex("city")
				AssertTrue(errors.Is(err, dberror.ErrNotFound))

				// the scan finds the same records
				AssertEqual(recordIDs(c.FindBy("city", "Madrid")), []string{"id1"})
			})
		})
	})
}

func TestUpdateDelete_NoMatch(t *testing.T) {
	Environment(func(dir string) {

		c, _ := Create(dir, "people", testConfig())
		c.Insert(map[string]any{"name": "Ann"})

		n, err := c.Update(`name = Zoe`, map[string]any{"age": 3})
		AssertNil(err)
		AssertEqual(n, 0)

		n, err = c.Delete(`name = Zoe`)
		AssertNil(err)
		AssertEqual(n, 0)

		_, err = c.Delete(`name = `)
		AssertTrue(errors.Is(err, dberror.ErrInvalidArgument))
	})
}

func TestOpen_Reload(t *testing.T) {
	for _, codec := range []storage.Codec{storage.JSON, storage.MsgPack} {
		Environment(func(dir string) {

			config := testConfig()
			config.Codec = codec

			c, _ := Create(dir, "people", config)
			for i := 0; i < 20; i++ {
				c.Insert(map[string]any{"n": i, "group": fmt.Sprint("g", i%3)})
			}
			AssertNil(c.CreateIndex("group"))
			AssertNil(c.CreateIndex("n"))

			reloaded, err := Open(dir, "people", config)
			AssertNil(err)

			AssertEqual(reloaded.Len(), 20)
			AssertEqual(reloaded.Indexes(), []string{"group", "n"})
			AssertEqual(reloaded.All(), c.All())

			for _, attribute := range []string{"group", "n"} {
				before, _ := c.DescribeIndex(attribute)
				after, _ := reloaded.DescribeIndex(attribute)
				AssertEqual(after, before)
			}

			result, err := reloaded.Query(query.Options{Filter: `n = 7`})
			AssertNil(err)
			AssertEqual(result.Plan, query.PlanIndex)
			AssertEqual(len(result.Rows), 1)
			AssertEqual(result.Rows[0]["n"], 7.0)
		})
	}
}

func TestOpen_RebuildsMissingIndex(t *testing.T) {
	Environment(func(dir string) {

		c, _ := Create(dir, "people", testConfig())
		c.Insert(map[string]any{"name": "Ann"})
		c.CreateIndex("name")

		os.Remove(filepath.Join(dir, "people_name_index.json"))

		reloaded, err := Open(dir, "people", testConfig())
		AssertNil(err)
		AssertEqual(recordIDs(reloaded.FindBy("name", "Ann")), []string{"id1"})
		AssertTrue(storage.Exists(filepath.Join(dir, "people_name_index.json")))
	})
}

func TestIndexInconsistency(t *testing.T) {
	Environment(func(dir string) {

		c, _ := Create(dir, "people", testConfig())
		c.CreateIndex("name")

		// a folder in place of the index file makes the rename fail
		indexFile := filepath.Join(dir, "people_name_index.json")
		os.Remove(indexFile)
		os.Mkdir(indexFile, 0755)

		_, err := c.Insert(map[string]any{"name": "Ann"})
		AssertTrue(errors.Is(err, dberror.ErrIndexInconsistency))

		// the record is kept
		AssertEqual(c.Len(), 1)
		_, err = c.Get("id1")
		AssertNil(err)
	})
}

func TestDropRename(t *testing.T) {
	biff.Alternative("Indexed collection", func(a *biff.A) {
		Environment(func(dir string) {

			c, _ := Create(dir, "people", testConfig())
			c.Insert(map[string]any{"name": "Ann"})
			c.CreateIndex("name")

			a.Alternative("rename", func(a *biff.A) {
				AssertNil(c.Rename("humans"))
				AssertEqual(c.Name(), "humans")

				for _, name := range []string{"humans.json", "humans_indexes.json", "humans_name_index.json"} {
					AssertTrue(storage.Exists(filepath.Join(dir, name)))
				}
				for _, name := range []string{"people.json", "people_indexes.json", "people_name_index.json"} {
					AssertFalse(storage.Exists(filepath.Join(dir, name)))
				}

				reloaded, err := Open(dir, "humans", testConfig())
				AssertNil(err)
				AssertEqual(reloaded.Len(), 1)
			})

			a.Alternative("rename over an existing collection", func(a *biff.A) {
				Create(dir, "others", testConfig())
				err := c.Rename("others")
				AssertTrue(errors.Is(err, dberror.ErrAlreadyExists))
			})

			a.Alternative("drop", func(a *biff.A) {
				AssertNil(c.Drop())
				entries, _ := os.ReadDir(dir)
				AssertEqual(len(entries), 0)
			})
		})
	})
}
