package store

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// File persists every entry in one JSON document. Entries live under a hashed
// member name so arbitrary keys never collide with gjson path syntax:
//
//	{"k<md5(key)>": {"key": "...", "value": "..."}}
type File struct {
	path string

	mu  sync.Mutex
	doc []byte
}

// OpenFile loads path, treating a missing or empty file as an empty store.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte(`{}`)
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("parse store file %s: not a JSON object", path)
	}

	return &File{path: path, doc: data}, nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	value := gjson.GetBytes(f.doc, entryName(key)+".value")
	if !value.Exists() {
		return "", false, nil
	}
	return value.String(), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := sjson.SetBytes(f.doc, entryName(key), map[string]string{"key": key, "value": value})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return f.commit(doc)
}

func (f *File) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := f.Get(ctx, key)
	return ok, err
}

func (f *File) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name := entryName(key)
	if !gjson.GetBytes(f.doc, name).Exists() {
		return nil
	}

	doc, err := sjson.DeleteBytes(f.doc, name)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return f.commit(doc)
}

// commit writes doc through a temp file and swaps it in place, then adopts it
// as the in-memory copy. Callers hold f.mu.
func (f *File) commit(doc []byte) (retErr error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp := f.path + ".tmp"
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open temp store file: %w", err)
	}

	if _, err := out.Write(doc); err != nil {
		_ = out.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("fsync temp store file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename temp store file: %w", err)
	}

	f.doc = doc
	return nil
}

func entryName(key string) string {
	sum := md5.Sum([]byte(key))
	return "k" + hex.EncodeToString(sum[:])
}
