// Package store holds the key-value contract used by conversations and
// sessions, with in-memory and JSON-file drivers.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("invalid store key")

// Store is a string key-value store. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Open builds the store for a configured driver name.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
