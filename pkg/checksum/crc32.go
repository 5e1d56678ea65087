// Package checksum implements the rolling integrity value carried by every
// device transfer frame: a CRC32 (IEEE) widened to the 8-byte wire field.
package checksum

import (
	"hash"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
)

// Size is the width of the checksum field on the wire.
const Size = 8

// Checksum returns the checksum of data.
func Checksum(data []byte) uint64 {
	return uint64(crc32.ChecksumIEEE(data))
}

// CRC32 accumulates a checksum over bytes fed in arbitrary pieces.
// The zero value is not usable; call New.
type CRC32 struct {
	h hash.Hash32
}

func New() *CRC32 {
	return &CRC32{h: crc32.NewIEEE()}
}

// Update folds p into the running checksum.
func (c *CRC32) Update(p []byte) {
	// hash.Hash never returns an error
	_, _ = c.h.Write(p)
}

// Write implements io.Writer so the accumulator can sit behind io.MultiWriter.
func (c *CRC32) Write(p []byte) (int, error) {
	c.Update(p)
	return len(p), nil
}

// Finalize returns the checksum of everything updated so far. It does not
// reset the accumulator.
func (c *CRC32) Finalize() uint64 {
	return uint64(c.h.Sum32())
}

// File returns the checksum of the file content at filePath.
func File(filePath string) (uint64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("fail to close file", "error", err.Error())
		}
	}()
	c := New()
	if _, err := io.Copy(c, file); err != nil {
		return 0, err
	}
	return c.Finalize(), nil
}
