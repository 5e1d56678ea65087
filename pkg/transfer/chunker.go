package transfer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rescp17/deviceTransfer/pkg/checksum"
	"github.com/rescp17/deviceTransfer/pkg/fileInfo"
)

type chunkerStage int

const (
	stageHeader chunkerStage = iota
	stageContent
	stageChecksum
	stageDone
)

// FileFrameChunker produces a file frame piece by piece: the header, the
// content in chunks of at most chunkSize bytes, then the checksum. The
// concatenation of all pieces is one well-formed file frame.
type FileFrameChunker struct {
	file          *os.File
	id            uuid.UUID
	chunkSize     int
	totalByteSize int64
	bytesRead     int64
	checksum      *checksum.CRC32
	content       *checksum.CRC32
	stage         chunkerStage
	buffer        []byte
}

func NewFileFrameChunker(att fileInfo.Attachment, chunkSize int) (*FileFrameChunker, error) {
	if chunkSize < MinChunkSize || chunkSize > MaxChunkSize {
		return nil, fmt.Errorf("chunk size must be between %d and %d", MinChunkSize, MaxChunkSize)
	}
	info, err := os.Stat(att.Path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fileInfo.ErrIsDir
	}
	file, err := os.Open(att.Path)
	if err != nil {
		return nil, err
	}

	return &FileFrameChunker{
		file:          file,
		id:            att.ID,
		chunkSize:     chunkSize,
		totalByteSize: info.Size(),
		checksum:      checksum.New(),
		content:       checksum.New(),
		stage:         stageHeader,
		buffer:        make([]byte, chunkSize),
	}, nil
}

// ContentLength is the number of content bytes declared in the header.
func (c *FileFrameChunker) ContentLength() int64 {
	return c.totalByteSize
}

// Next returns the next piece of the frame, or io.EOF once the checksum has
// been returned. Every piece is a fresh slice owned by the caller.
func (c *FileFrameChunker) Next() ([]byte, error) {
	switch c.stage {
	case stageHeader:
		header, err := ComposeFileHeader(c.id, c.totalByteSize)
		if err != nil {
			return nil, err
		}
		c.checksum.Update(c.id[:])
		c.stage = stageContent
		if c.totalByteSize == 0 {
			c.stage = stageChecksum
		}
		return header, nil

	case stageContent:
		want := int64(c.chunkSize)
		if remaining := c.totalByteSize - c.bytesRead; remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(c.file, c.buffer[:want])
		if err != nil {
			// The file shrank after the header declared its length.
			return nil, fmt.Errorf("failed to read %s at offset %d: %w", c.file.Name(), c.bytesRead, err)
		}
		c.bytesRead += int64(n)
		c.checksum.Update(c.buffer[:n])
		c.content.Update(c.buffer[:n])
		if c.bytesRead >= c.totalByteSize {
			c.stage = stageChecksum
		}

		data := make([]byte, n)
		copy(data, c.buffer[:n])
		return data, nil

	case stageChecksum:
		c.stage = stageDone
		return binary.BigEndian.AppendUint64(nil, c.checksum.Finalize()), nil

	case stageDone:
		return nil, io.EOF

	default:
		panic(fmt.Sprintf("transfer: unexpected chunker stage %d", c.stage))
	}
}

// ContentChecksum is the checksum of the content read so far, without the
// file id. Once Next has returned io.EOF it covers the whole file as sent.
func (c *FileFrameChunker) ContentChecksum() uint64 {
	return c.content.Finalize()
}

func (c *FileFrameChunker) Close() error {
	return c.file.Close()
}
