package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDirectory(t *testing.T) {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "testfile.txt")
	require.NoError(t, os.WriteFile(tempFile, nil, 0644))

	tests := []struct {
		name           string
		path           string
		expectedExists bool
		expectedIsDir  bool
	}{
		{"Existing directory", tempDir, true, true},
		{"Existing file", tempFile, true, false},
		{"Missing path", filepath.Join(tempDir, "missing"), false, false},
		{"Empty path", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, isDir, err := CheckDirectory(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedExists, exists)
			assert.Equal(t, tt.expectedIsDir, isDir)
		})
	}
}

func TestCheckDirectorySymlinks(t *testing.T) {
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	require.NoError(t, os.Mkdir(subDir, 0755))

	symlinkPath := filepath.Join(tempDir, "symlink")
	if err := os.Symlink(subDir, symlinkPath); err != nil {
		t.Skipf("Symlinks not supported or permission denied: %v", err)
	}

	exists, isDir, err := CheckDirectory(symlinkPath)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, isDir, "symlink to a directory is reported as a directory")
}

func TestEnsureDirectory(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("creates nested directories", func(t *testing.T) {
		path := filepath.Join(tempDir, "a", "b")
		require.NoError(t, EnsureDirectory(path))
		_, isDir, err := CheckDirectory(path)
		require.NoError(t, err)
		assert.True(t, isDir)
	})

	t.Run("existing directory is fine", func(t *testing.T) {
		assert.NoError(t, EnsureDirectory(tempDir))
	})

	t.Run("regular file is rejected", func(t *testing.T) {
		file := filepath.Join(tempDir, "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		assert.Error(t, EnsureDirectory(file))
	})
}
