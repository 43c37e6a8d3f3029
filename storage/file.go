// Package storage persists whole documents with a pluggable codec. Every write
// goes to a temporary file in the target folder which is then renamed over the
// final name, so readers see either the old document or the new one.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulldump/hashdb/dberror"
)

// TempMarker is part of every temporary file name.
const TempMarker = ".tmp-"

// IsTemp reports whether name is a leftover temporary file.
func IsTemp(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && strings.Contains(base, TempMarker)
}

// WriteFile encodes v and atomically replaces filename.
func WriteFile(filename string, codec Codec, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode '%s': %w", filepath.Base(filename), err)
	}

	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+TempMarker+"*")
	if err != nil {
		return dberror.IOFailure(err, "write '%s'", base)
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op once renamed

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return dberror.IOFailure(err, "write '%s'", base)
	}

	err = os.Rename(tmp, filename)
	if err != nil {
		return dberror.IOFailure(err, "write '%s'", base)
	}

	return nil
}

// ReadFile decodes filename into v. A missing file is reported with
// dberror.ErrNotFound and fs.ErrNotExist in the chain.
func ReadFile(filename string, codec Codec, v any) error {
	base := filepath.Base(filename)

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read '%s': %w: %w", base, dberror.ErrNotFound, err)
	}
	if err != nil {
		return dberror.IOFailure(err, "read '%s'", base)
	}

	err = codec.Unmarshal(data, v)
	if err != nil {
		return dberror.IOFailure(err, "decode '%s'", base)
	}

	return nil
}

// Remove deletes filename, a missing file is not an error.
func Remove(filename string) error {
	err := os.Remove(filename)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return dberror.IOFailure(err, "remove '%s'", filepath.Base(filename))
	}
	return nil
}

// Rename moves from to to, a missing source is not an error.
func Rename(from, to string) error {
	err := os.Rename(from, to)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return dberror.IOFailure(err, "rename '%s'", filepath.Base(from))
	}
	return nil
}

// Exists reports whether filename is present.
func Exists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
