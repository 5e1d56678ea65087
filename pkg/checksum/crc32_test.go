package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum_KnownValue(t *testing.T) {
	// CRC32 IEEE check value
	assert.Equal(t, uint64(0xCBF43926), Checksum([]byte("123456789")))
	assert.Equal(t, uint64(0), Checksum(nil))
}

func TestCRC32_IncrementalMatchesOneShot(t *testing.T) {
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i * 31)
	}

	splits := []int{1, 7, 4096, len(data)}
	for _, size := range splits {
		c := New()
		for i := 0; i < len(data); i += size {
			end := min(i+size, len(data))
			c.Update(data[i:end])
		}
		assert.Equal(t, Checksum(data), c.Finalize(), "split size %d", size)
	}
}

func TestCRC32_FinalizeDoesNotReset(t *testing.T) {
	c := New()
	c.Update([]byte("hello "))
	first := c.Finalize()
	assert.Equal(t, first, c.Finalize())

	c.Update([]byte("world"))
	assert.Equal(t, Checksum([]byte("hello world")), c.Finalize())
}

func TestFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "data.bin")
	content := []byte("attachment content")
	require.NoError(t, os.WriteFile(path, content, 0644))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Checksum(content), sum)

	_, err = File(filepath.Join(tempDir, "missing"))
	assert.Error(t, err)
}
