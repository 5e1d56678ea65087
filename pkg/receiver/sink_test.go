package receiver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rescp17/deviceTransfer/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSink_Create(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("default_name", func(t *testing.T) {
		sink := NewDirSink(tempDir)
		path, w, err := sink.Create(testFileID)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tempDir, testFileID.String()), path)

		_, err = w.Write([]byte("content"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "content", string(content))
	})

	t.Run("replaces_existing_file", func(t *testing.T) {
		sink := NewDirSink(tempDir)
		path := filepath.Join(tempDir, testFileID.String())
		require.NoError(t, os.WriteFile(path, []byte("stale content from an earlier attempt"), 0644))

		_, w, err := sink.Create(testFileID)
		require.NoError(t, err)
		_, err = w.Write([]byte("fresh"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(content))
	})

	t.Run("resolver_with_subdirectory", func(t *testing.T) {
		sink := NewDirSink(tempDir, WithNameResolver(func(id uuid.UUID) string {
			return filepath.Join("Photos", id.String()+".jpg")
		}))
		path, w, err := sink.Create(testFileID)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.Equal(t, filepath.Join(tempDir, "Photos", testFileID.String()+".jpg"), path)
		assert.FileExists(t, path)
	})

	t.Run("path_traversal_is_contained", func(t *testing.T) {
		sink := NewDirSink(tempDir, WithNameResolver(func(uuid.UUID) string {
			return "../../escaped.txt"
		}))
		path, w, err := sink.Create(testFileID)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.Equal(t, filepath.Join(tempDir, "escaped.txt"), path)
	})

	t.Run("unresolvable_id", func(t *testing.T) {
		sink := NewDirSink(tempDir, WithNameResolver(func(uuid.UUID) string { return "" }))
		_, w, err := sink.Create(testFileID)
		assert.Error(t, err)
		assert.Nil(t, w)
	})
}

func TestDirSink_Remove(t *testing.T) {
	tempDir := t.TempDir()
	sink := NewDirSink(tempDir)
	path := filepath.Join(tempDir, "corrupted")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, sink.Remove(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, sink.Remove(path), "removing a missing file is not an error")
}

func TestDirSink_AbortRemovesPartialFiles(t *testing.T) {
	tempDir := t.TempDir()
	sink := NewDirSink(tempDir)

	frame, err := transfer.ComposeFile(testFileID, randomContent(8192, 11))
	require.NoError(t, err)

	rec := &recorder{}
	p := NewParser(rec, sink)
	p.Ingest(frame[:4096])

	partial := filepath.Join(tempDir, testFileID.String())
	assert.FileExists(t, partial)
	require.NoError(t, sink.Abort())
	assert.NoFileExists(t, partial)
	assert.Empty(t, rec.events)
}

func TestDirSink_AbortKeepsCompletedFiles(t *testing.T) {
	tempDir := t.TempDir()
	sink := NewDirSink(tempDir)

	frame, err := transfer.ComposeFile(testFileID, []byte("complete"))
	require.NoError(t, err)
	rec := &recorder{}
	NewParser(rec, sink).Ingest(frame)
	require.Equal(t, []string{"file"}, rec.kinds())

	require.NoError(t, sink.Abort())
	assert.FileExists(t, rec.events[0].path)
}

func TestDirSink_UnresolvableFileNotReported(t *testing.T) {
	tempDir := t.TempDir()
	sink := NewDirSink(tempDir, WithNameResolver(func(uuid.UUID) string { return "" }))

	var stream []byte
	stream = append(stream, composeFile(t, testFileID, []byte("orphan"))...)
	stream = append(stream, composeCommand(t, transfer.NewFinishCommand())...)

	rec := &recorder{}
	p := NewParser(rec, sink)
	p.Ingest(stream)

	assert.Equal(t, []string{"command"}, rec.kinds())
	assert.NoError(t, p.Err())
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
