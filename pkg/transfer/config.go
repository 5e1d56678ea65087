package transfer

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the limits and sizes used by both ends of a transfer.
type Config struct {
	// MaxMessageSize is the largest record payload the composer emits.
	MaxMessageSize int `json:"max_message_size" toml:"max_message_size"`
	// MaxFrameLength caps the declared length of command and message frames
	// accepted by the parser. Zero disables the cap. File frames stream and
	// are never capped.
	MaxFrameLength uint32 `json:"max_frame_length" toml:"max_frame_length"`

	// File content is read and framed in pieces of FileChunkSize bytes.
	FileChunkSize int `json:"file_chunk_size" toml:"file_chunk_size"`

	// ReadBufferSize is the size of the chunks read from the transport.
	ReadBufferSize int `json:"read_buffer_size" toml:"read_buffer_size"`

	// MaxInFlightBytes bounds composed but not yet written frames on the sender.
	MaxInFlightBytes int64 `json:"max_in_flight_bytes" toml:"max_in_flight_bytes"`

	// VerifyAttachments re-reads every sent file and warns when its content
	// no longer matches what went on the wire.
	VerifyAttachments bool `json:"verify_attachments" toml:"verify_attachments"`
}

const (
	DefaultMaxMessageSize   = 500 * 1024
	DefaultMaxFrameLength   = 16 * 1024 * 1024
	DefaultChunkSize        = 64 * 1024  // 64KB
	MaxChunkSize            = 256 * 1024 // 256KB
	MinChunkSize            = 4 * 1024   // 4KB
	DefaultReadBufferSize   = 32 * 1024
	DefaultMaxInFlightBytes = 8 * 1024 * 1024
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxMessageSize:   DefaultMaxMessageSize,
		MaxFrameLength:   DefaultMaxFrameLength,
		FileChunkSize:    DefaultChunkSize,
		ReadBufferSize:   DefaultReadBufferSize,
		MaxInFlightBytes: DefaultMaxInFlightBytes,
	}
}

// LoadConfig reads a TOML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.MaxMessageSize <= 0 {
		return errors.New("max_message_size must be positive")
	}
	if c.MaxFrameLength != 0 && uint64(c.MaxFrameLength) < uint64(c.MaxMessageSize) {
		return errors.New("max_frame_length cannot be less than max_message_size")
	}
	if c.FileChunkSize < MinChunkSize || c.FileChunkSize > MaxChunkSize {
		return fmt.Errorf("file_chunk_size must be between %d and %d", MinChunkSize, MaxChunkSize)
	}
	if c.ReadBufferSize <= 0 {
		return errors.New("read_buffer_size must be positive")
	}
	if c.MaxInFlightBytes < int64(c.FileChunkSize) {
		return errors.New("max_in_flight_bytes cannot be less than file_chunk_size")
	}
	return nil
}
