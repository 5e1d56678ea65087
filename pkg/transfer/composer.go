package transfer

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/rescp17/deviceTransfer/pkg/checksum"
)

// Composer wraps commands, records and files into frames. It holds no
// mutable state and is safe for concurrent use.
type Composer struct {
	maxMessageSize int
}

// NewComposer returns a composer using the limits of cfg. A nil cfg uses
// DefaultConfig.
func NewComposer(cfg *Config) *Composer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Composer{maxMessageSize: cfg.MaxMessageSize}
}

var defaultComposer = NewComposer(nil)

// ComposeCommand frames cmd with the default composer.
func ComposeCommand(cmd Command) ([]byte, error) {
	return defaultComposer.ComposeCommand(cmd)
}

// ComposeMessage frames record with the default composer.
func ComposeMessage(recordType RecordType, record any) ([]byte, error) {
	return defaultComposer.ComposeMessage(recordType, record)
}

// ComposeCommand serializes cmd and frames it as a command.
func (c *Composer) ComposeCommand(cmd Command) ([]byte, error) {
	data, err := MarshalCommand(cmd)
	if err != nil {
		slog.Error("Failed to encode command", "action", cmd.Action, "error", err)
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return ComposeFrame(KindCommand, data)
}

// ComposeMessage serializes record under recordType and frames it as a
// message. Payloads of MaxMessageSize bytes or more are refused.
func (c *Composer) ComposeMessage(recordType RecordType, record any) ([]byte, error) {
	data, err := MarshalRecord(recordType, record)
	if err != nil {
		slog.Error("Failed to encode record", "type", recordType, "error", err)
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if len(data) >= c.maxMessageSize {
		slog.Warn("Data size is too large", "type", recordType, "size", len(data))
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	return ComposeFrame(KindMessage, data)
}

// ComposeFrame produces [kind][length][payload][checksum(payload)].
func ComposeFrame(kind Kind, payload []byte) ([]byte, error) {
	if _, ok := ParseKind(byte(kind)); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrameType, kind)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	frame := make([]byte, HeaderLength+len(payload)+ChecksumLength)
	frame[0] = byte(kind)
	binary.BigEndian.PutUint32(frame[KindLength:HeaderLength], uint32(len(payload)))
	copy(frame[HeaderLength:], payload)
	binary.BigEndian.PutUint64(frame[HeaderLength+len(payload):], checksum.Checksum(payload))
	return frame, nil
}

// ComposeFileHeader produces the [kind][length][id] prefix of a file frame
// whose content is contentLength bytes long.
func ComposeFileHeader(id uuid.UUID, contentLength int64) ([]byte, error) {
	if contentLength < 0 || contentLength > math.MaxUint32-FileIDLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, contentLength)
	}
	header := make([]byte, FileHeaderLength)
	header[0] = byte(KindFile)
	binary.BigEndian.PutUint32(header[KindLength:HeaderLength], uint32(FileIDLength+contentLength))
	copy(header[HeaderLength:], id[:])
	return header, nil
}

// ComposeFile frames content held in memory as a file. Large files should go
// through a FileFrameChunker instead.
func ComposeFile(id uuid.UUID, content []byte) ([]byte, error) {
	header, err := ComposeFileHeader(id, int64(len(content)))
	if err != nil {
		return nil, err
	}
	sum := checksum.New()
	sum.Update(id[:])
	sum.Update(content)

	frame := make([]byte, 0, len(header)+len(content)+ChecksumLength)
	frame = append(frame, header...)
	frame = append(frame, content...)
	return binary.BigEndian.AppendUint64(frame, sum.Finalize()), nil
}
