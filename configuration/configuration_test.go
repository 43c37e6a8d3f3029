package configuration

import (
	"testing"

	. "github.com/fulldump/biff"

	"github.com/fulldump/hashdb/storage"
	"github.com/fulldump/hashdb/transaction"
)

func TestDefault(t *testing.T) {

	c := Default()

	codec, err := storage.ByName(c.Format)
	AssertNil(err)
	AssertEqual(codec.Name(), "json")
	AssertEqual(c.BackupDir, transaction.DefaultBackupDir)
	AssertTrue(c.Buckets > 0)
	AssertTrue(c.IndexOrder >= 3)
}
