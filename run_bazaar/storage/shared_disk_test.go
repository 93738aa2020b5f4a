package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedDiskReadWrite(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	runId := uuid.New()
	path := RunConfigPath(runId)

	exists, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(path, strings.NewReader(`{"model": {}}`)))

	exists, err = store.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	file, err := store.Read(path)
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, `{"model": {}}`, string(data))

	size, err := store.Size(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	entries, err := store.List(RunPath(runId))
	require.NoError(t, err)
	assert.Equal(t, []string{"train_config.json"}, entries)

	require.NoError(t, store.Delete(RunPath(runId)))

	exists, err = store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSharedDiskAppend(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	require.NoError(t, store.Append("logs/train.log", bytes.NewReader([]byte("line 1\n"))))
	require.NoError(t, store.Append("logs/train.log", bytes.NewReader([]byte("line 2\n"))))

	file, err := store.Read("logs/train.log")
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\n", string(data))
}

func TestSharedDiskUsage(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	usage, err := store.Usage()
	require.NoError(t, err)
	assert.Greater(t, usage.TotalBytes, uint64(0))
	assert.LessOrEqual(t, usage.FreeBytes, usage.TotalBytes)
}
