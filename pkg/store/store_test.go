package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "conversation:42")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "conversation:42", "form:name"))
	value, ok, err := s.Get(ctx, "conversation:42")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "form:name", value)

	has, err := s.Has(ctx, "conversation:42")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Set(ctx, "weird.key*?#", ""))
	value, ok, err = s.Get(ctx, "weird.key*?#")
	require.NoError(t, err)
	assert.True(t, ok, "empty value is still present")
	assert.Empty(t, value)

	require.NoError(t, s.Delete(ctx, "conversation:42"))
	has, err = s.Has(ctx, "conversation:42")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Delete(ctx, "never-set"))

	require.ErrorIs(t, s.Set(ctx, "", "x"), ErrInvalidKey)
	_, _, err = s.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemory(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	t.Parallel()

	s, err := OpenFile(filepath.Join(t.TempDir(), "nested", "store.json"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFilePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	first, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "session:7:lang", "de"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "session:7:lang", gjson.GetBytes(data, entryName("session:7:lang")+".key").String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := OpenFile(path)
	require.NoError(t, err)
	value, ok, err := second.Get(ctx, "session:7:lang")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "de", value)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenFileRejectsNonObject(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0o600))

	_, err := OpenFile(path)
	require.Error(t, err)
}

func TestOpenFileAcceptsEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)
	has, err := s.Has(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestOpenDriver(t *testing.T) {
	t.Parallel()

	s, err := Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open("FILE", filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	_, err = Open("file", "")
	require.Error(t, err)

	_, err = Open("redis", "")
	require.Error(t, err)
}

func TestSessionScopesKeysPerChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backing := NewMemory()
	alice := NewSession(backing, 1)
	bob := NewSession(backing, 2)

	require.NoError(t, alice.Set(ctx, "name", "Alice"))

	got, err := alice.Get(ctx, "name", "")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got)

	got, err = bob.Get(ctx, "name", "stranger")
	require.NoError(t, err)
	assert.Equal(t, "stranger", got)

	raw, ok, err := backing.Get(ctx, "session:1:name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alice", raw)

	require.NoError(t, alice.Delete(ctx, "name"))
	has, err := alice.Has(ctx, "name")
	require.NoError(t, err)
	assert.False(t, has)

	require.ErrorIs(t, alice.Set(ctx, "", "x"), ErrInvalidKey)
}
