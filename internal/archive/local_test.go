package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKey_IsDeterministic(t *testing.T) {
	t.Parallel()

	a := Key("jiazi", []byte(`{"code":"200"}`))
	b := Key("jiazi", []byte(`{"code":"200"}`))
	c := Key("jiazi", []byte(`{"code":"500"}`))

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.True(t, strings.HasPrefix(a, "jiazi/"))
	require.True(t, strings.HasSuffix(a, ".raw"))
}

func TestLocalStore_PutWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	body := []byte(`{"code":"200","data":{}}`)
	uri, err := store.Put(context.Background(), Key("jiazi", body), body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	written, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	require.Equal(t, body, written)
}

func TestLocalStore_RejectsEscapingKey(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.raw", []byte("x"))
	require.ErrorContains(t, err, "escapes archive root")
}

func TestNewLocalStore_CreatesMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "raw")
	_, err := NewLocalStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNoOp_Put(t *testing.T) {
	t.Parallel()

	uri, err := NoOp{}.Put(context.Background(), "any", []byte("x"))
	require.NoError(t, err)
	require.Empty(t, uri)
}
