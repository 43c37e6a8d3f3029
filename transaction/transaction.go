// Package transaction protects a data folder with whole-folder snapshots.
//
// Begin copies every data entry of the root folder into a backup folder,
// Commit throws the backup away and Rollback puts it back in place. Only one
// transaction exists at a time and nothing is locked: callers are expected to
// serialize access themselves.
package transaction

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/storage"
)

const DefaultBackupDir = "__backup"

var ErrNoTransaction = errors.New("no active transaction")

type Config struct {
	Root      string
	BackupDir string   // folder name inside Root, DefaultBackupDir if empty
	Exclude   []string // top level names never snapshotted nor restored
	Logger    *slog.Logger
}

type Manager struct {
	root    string
	backup  string
	staging string
	exclude map[string]bool
	logger  *slog.Logger

	active    bool
	closeOnce sync.Once
}

func New(config Config) *Manager {
	if config.BackupDir == "" {
		config.BackupDir = DefaultBackupDir
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	m := &Manager{
		root:    config.Root,
		backup:  filepath.Join(config.Root, config.BackupDir),
		staging: filepath.Join(config.Root, config.BackupDir+".restore"),
		exclude: map[string]bool{},
		logger:  config.Logger.With("component", "transaction"),
	}

	m.exclude[filepath.Base(m.backup)] = true
	m.exclude[filepath.Base(m.staging)] = true
	for _, name := range config.Exclude {
		m.exclude[name] = true
	}

	return m
}

func (m *Manager) Active() bool {
	return m.active
}

// BackupPath is where the snapshot lives while a transaction is active.
func (m *Manager) BackupPath() string {
	return m.backup
}

func (m *Manager) managed(name string) bool {
	return !m.exclude[name] && !storage.IsTemp(name)
}

// Begin snapshots the root folder. Calling it again while a transaction is
// active only logs a warning.
func (m *Manager) Begin() error {
	if m.active {
		m.logger.Warn("transaction already in progress")
		return nil
	}

	// leftovers from a previous run
	os.RemoveAll(m.staging)
	err := os.RemoveAll(m.backup)
	if err != nil {
		return dberror.IOFailure(err, "remove stale backup")
	}

	err = os.Mkdir(m.backup, 0755)
	if err != nil {
		return dberror.IOFailure(err, "create backup")
	}

	err = copyTree(m.root, m.backup, m.managed)
	if err != nil {
		os.RemoveAll(m.backup)
		return dberror.IOFailure(err, "snapshot '%s'", m.root)
	}

	m.active = true
	m.logger.Info("transaction started", "backup", m.backup)

	return nil
}

// Commit keeps the current files and discards the snapshot.
func (m *Manager) Commit() error {
	if !m.active {
		return ErrNoTransaction
	}

	err := os.RemoveAll(m.backup)
	if err != nil {
		return dberror.IOFailure(err, "remove backup")
	}

	m.active = false
	m.logger.Info("transaction committed")

	return nil
}

// Rollback restores the files as they were at Begin. The snapshot is only
// consumed once the restore has completed; on failure the transaction stays
// active and Rollback can be retried.
func (m *Manager) Rollback() error {
	if !m.active {
		return ErrNoTransaction
	}

	os.RemoveAll(m.staging)
	err := os.Mkdir(m.staging, 0755)
	if err != nil {
		return dberror.IOFailure(err, "create restore folder")
	}
	defer os.RemoveAll(m.staging)

	err = copyTree(m.backup, m.staging, nil)
	if err != nil {
		return dberror.IOFailure(err, "stage backup")
	}

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return dberror.IOFailure(err, "read '%s'", m.root)
	}
	for _, entry := range entries {
		if !m.managed(entry.Name()) {
			continue
		}
		err := os.RemoveAll(filepath.Join(m.root, entry.Name()))
		if err != nil {
			return dberror.IOFailure(err, "remove '%s'", entry.Name())
		}
	}

	staged, err := os.ReadDir(m.staging)
	if err != nil {
		return dberror.IOFailure(err, "read restore folder")
	}
	for _, entry := range staged {
		err := os.Rename(filepath.Join(m.staging, entry.Name()), filepath.Join(m.root, entry.Name()))
		if err != nil {
			return dberror.IOFailure(err, "restore '%s'", entry.Name())
		}
	}

	err = os.RemoveAll(m.backup)
	if err != nil {
		return dberror.IOFailure(err, "remove backup")
	}

	m.active = false
	m.logger.Info("transaction rolled back")

	return nil
}

// DiscardStale removes a backup left behind by a process that stopped in the
// middle of a transaction. The files keep whatever that transaction wrote.
func (m *Manager) DiscardStale() (bool, error) {
	if m.active || !storage.Exists(m.backup) {
		return false, nil
	}

	os.RemoveAll(m.staging)
	err := os.RemoveAll(m.backup)
	if err != nil {
		return false, dberror.IOFailure(err, "remove stale backup")
	}

	return true, nil
}

// Close is the shutdown hook. A transaction still active is abandoned: its
// backup is deleted without being restored, so the files keep every change
// made since Begin. Only the first call does anything.
func (m *Manager) Close() (err error) {
	m.closeOnce.Do(func() {
		if !m.active {
			return
		}
		m.logger.Warn("transaction ended without commit or rollback, discarding backup", "backup", m.backup)
		os.RemoveAll(m.staging)
		err = os.RemoveAll(m.backup)
		if err != nil {
			err = dberror.IOFailure(err, "remove backup")
			return
		}
		m.active = false
	})
	return
}

// copyTree copies the regular files and folders of src into the existing
// folder dst. keep filters top level names, nil keeps everything. Temporary
// files are skipped at every level.
func copyTree(src, dst string, keep func(name string) bool) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if keep != nil && !keep(name) {
			continue
		}
		if storage.IsTemp(name) {
			continue
		}

		from := filepath.Join(src, name)
		to := filepath.Join(dst, name)

		switch {
		case entry.IsDir():
			err = os.Mkdir(to, 0755)
			if err == nil {
				err = copyTree(from, to, nil)
			}
		case entry.Type().IsRegular():
			err = copyFile(from, to)
		default:
			continue // sockets, links...
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()

	_, err = io.Copy(destination, source)
	if err != nil {
		return err
	}

	return destination.Sync()
}
