package receiver

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rescp17/deviceTransfer/pkg/checksum"
	"github.com/rescp17/deviceTransfer/pkg/transfer"
)

// State is the coarse state of a Parser.
type State int

const (
	StateEmpty State = iota
	StateReceivingMessage
	StateReceivingFile
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReceivingMessage:
		return "receiving_message"
	case StateReceivingFile:
		return "receiving_file"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// parserState is a closed union: only the types below implement it.
type parserState interface {
	isParserState()
}

type emptyState struct{}

// messageState covers command and message frames, which are buffered whole.
type messageState struct{}

type fileState struct {
	sub fileSubState
}

type failedState struct {
	err error
}

func (emptyState) isParserState()   {}
func (messageState) isParserState() {}
func (fileState) isParserState()    {}
func (failedState) isParserState()  {}

type fileSubState interface {
	isFileSubState()
}

type fileHeader struct{}

// fileContent streams content bytes to w. w is nil when the destination
// could not be opened; bytes are then dropped but still checksummed.
type fileContent struct {
	w         io.WriteCloser
	path      string
	remaining int64
	checksum  *checksum.CRC32
}

type fileChecksum struct {
	path    string
	local   uint64
	partial [transfer.ChecksumLength]byte
	n       int
}

func (fileHeader) isFileSubState()   {}
func (fileContent) isFileSubState()  {}
func (fileChecksum) isFileSubState() {}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxFrameLength caps the declared length of command and message frames.
// Zero disables the cap; oversized frames are then only logged.
func WithMaxFrameLength(n uint32) Option {
	return func(p *Parser) {
		p.maxFrameLength = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parser reassembles frames from an arbitrarily chunked byte stream and
// reports them to its delegate. It is not safe for concurrent use: Ingest
// must be called with every chunk in arrival order from a single goroutine.
// Once a failure is reported the parser ignores all further input.
type Parser struct {
	delegate       Delegate
	sink           FileSink
	logger         *slog.Logger
	maxFrameLength uint32

	buffer carryOver
	state  parserState
}

// NewParser returns a parser reporting to delegate and writing files through
// sink. delegate must not be nil. A nil sink drops file content while still
// verifying it.
func NewParser(delegate Delegate, sink FileSink, opts ...Option) *Parser {
	p := &Parser{
		delegate:       delegate,
		sink:           sink,
		logger:         slog.Default(),
		maxFrameLength: transfer.DefaultMaxFrameLength,
		state:          emptyState{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the current coarse state.
func (p *Parser) State() State {
	switch p.state.(type) {
	case emptyState:
		return StateEmpty
	case messageState:
		return StateReceivingMessage
	case fileState:
		return StateReceivingFile
	case failedState:
		return StateFailed
	default:
		panic(fmt.Sprintf("receiver: unexpected parser state %T", p.state))
	}
}

// Err returns the failure that stopped the parser, or nil.
func (p *Parser) Err() error {
	if s, ok := p.state.(failedState); ok {
		return s.err
	}
	return nil
}

// Ingest consumes the next chunk of the stream. Decoded frames are reported
// synchronously, in stream order, before Ingest returns. chunk is not
// retained.
func (p *Parser) Ingest(chunk []byte) {
	if _, failed := p.state.(failedState); failed {
		return
	}
	p.buffer.append(chunk)
	for p.step() {
	}
}

// step advances the state machine once. It reports whether another step can
// make progress with the bytes already buffered.
func (p *Parser) step() bool {
	switch s := p.state.(type) {
	case emptyState:
		return p.stepEmpty()
	case messageState:
		return p.stepMessage()
	case fileState:
		return p.stepFile(s.sub)
	case failedState:
		return false
	default:
		panic(fmt.Sprintf("receiver: unexpected parser state %T", p.state))
	}
}

func (p *Parser) stepEmpty() bool {
	if p.buffer.len() == 0 {
		return false
	}
	kind, ok := transfer.ParseKind(p.buffer.bytes()[0])
	if !ok {
		p.fail(fmt.Errorf("%w: %#02x", transfer.ErrUnknownFrameType, p.buffer.bytes()[0]))
		return false
	}
	switch kind {
	case transfer.KindCommand, transfer.KindMessage:
		p.state = messageState{}
	case transfer.KindFile:
		p.state = fileState{sub: fileHeader{}}
	}
	return true
}

func (p *Parser) stepMessage() bool {
	buf := p.buffer.bytes()
	if len(buf) < transfer.HeaderLength {
		return false
	}
	declared := binary.BigEndian.Uint32(buf[transfer.KindLength:transfer.HeaderLength])
	if p.maxFrameLength > 0 && declared > p.maxFrameLength {
		p.fail(fmt.Errorf("%w: declared %d bytes, limit %d", transfer.ErrFrameTooLarge, declared, p.maxFrameLength))
		return false
	}
	length := int(declared)
	total := transfer.HeaderLength + length + transfer.ChecksumLength
	if len(buf) < total {
		return false
	}
	if p.maxFrameLength == 0 && length > transfer.DefaultMaxMessageSize {
		p.logger.Warn("Received oversized message frame", "length", length)
	}

	payload := make([]byte, length)
	copy(payload, buf[transfer.HeaderLength:transfer.HeaderLength+length])
	remote := binary.BigEndian.Uint64(buf[transfer.HeaderLength+length : total])
	local := checksum.Checksum(payload)
	if local != remote {
		p.fail(fmt.Errorf("%w: remote %d, local %d", transfer.ErrChecksumMismatch, remote, local))
		return false
	}

	p.buffer.consume(total)
	p.state = emptyState{}

	if cmd, err := transfer.DecodeCommand(payload); err == nil {
		p.logger.Debug("Parsed command", "action", cmd.Action)
		p.delegate.OnCommand(cmd)
	} else {
		p.logger.Debug("Parsed message", "length", length)
		p.delegate.OnMessage(payload)
	}
	return true
}

func (p *Parser) stepFile(sub fileSubState) bool {
	switch s := sub.(type) {
	case fileHeader:
		return p.stepFileHeader()
	case fileContent:
		return p.stepFileContent(s)
	case fileChecksum:
		return p.stepFileChecksum(s)
	default:
		panic(fmt.Sprintf("receiver: unexpected file state %T", sub))
	}
}

func (p *Parser) stepFileHeader() bool {
	buf := p.buffer.bytes()
	if len(buf) < transfer.FileHeaderLength {
		return false
	}
	declared := binary.BigEndian.Uint32(buf[transfer.KindLength:transfer.HeaderLength])
	if declared < transfer.FileIDLength {
		p.fail(fmt.Errorf("%w: file frame declares %d bytes", transfer.ErrMalformedFrame, declared))
		return false
	}
	var id uuid.UUID
	copy(id[:], buf[transfer.HeaderLength:transfer.FileHeaderLength])
	p.buffer.consume(transfer.FileHeaderLength)

	path, w := p.openFile(id)
	sum := checksum.New()
	sum.Update(id[:])
	p.state = fileState{sub: fileContent{
		w:         w,
		path:      path,
		remaining: int64(declared) - transfer.FileIDLength,
		checksum:  sum,
	}}
	return true
}

func (p *Parser) openFile(id uuid.UUID) (string, io.WriteCloser) {
	if p.sink == nil {
		p.logger.Warn("No file sink, dropping file content", "id", id.String())
		return "", nil
	}
	path, w, err := p.sink.Create(id)
	if err != nil {
		p.logger.Warn("Failed to open file, dropping content", "id", id.String(), "path", path, "error", err)
		return path, nil
	}
	p.logger.Debug("File opened", "id", id.String(), "path", path)
	return path, w
}

func (p *Parser) stepFileContent(s fileContent) bool {
	if s.remaining > 0 {
		buf := p.buffer.bytes()
		if len(buf) == 0 {
			return false
		}
		n := len(buf)
		if int64(n) > s.remaining {
			n = int(s.remaining)
		}
		content := buf[:n]
		if s.w != nil {
			if _, err := s.w.Write(content); err != nil {
				p.logger.Warn("Failed to write file, dropping remaining content", "path", s.path, "error", err)
				p.closeFile(s.w, s.path)
				s.w = nil
				p.removeFile(s.path)
			}
		}
		s.checksum.Update(content)
		s.remaining -= int64(n)
		p.buffer.consume(n)
	}

	if s.remaining > 0 {
		p.state = fileState{sub: s}
		return false
	}

	if s.w != nil {
		p.closeFile(s.w, s.path)
	}
	p.state = fileState{sub: fileChecksum{path: s.path, local: s.checksum.Finalize()}}
	return true
}

func (p *Parser) closeFile(w io.WriteCloser, path string) {
	if err := w.Close(); err != nil {
		p.logger.Warn("Failed to close file", "path", path, "error", err)
		return
	}
	p.logger.Debug("File closed", "path", path)
}

func (p *Parser) stepFileChecksum(s fileChecksum) bool {
	buf := p.buffer.bytes()
	n := copy(s.partial[s.n:], buf)
	s.n += n
	p.buffer.consume(n)
	if s.n < transfer.ChecksumLength {
		p.state = fileState{sub: s}
		return false
	}

	remote := binary.BigEndian.Uint64(s.partial[:])
	if remote != s.local {
		p.removeFile(s.path)
		p.fail(fmt.Errorf("%w: file %s remote %d, local %d", transfer.ErrChecksumMismatch, s.path, remote, s.local))
		return false
	}

	p.logger.Debug("File checksum passed", "path", s.path)
	p.state = emptyState{}
	if s.path == "" {
		p.logger.Warn("File verified but has no destination, not reporting it")
		return true
	}
	p.delegate.OnFile(s.path)
	return true
}

// removeFile deletes a partial or corrupted file through the sink.
func (p *Parser) removeFile(path string) {
	if path == "" || p.sink == nil {
		return
	}
	if err := p.sink.Remove(path); err != nil {
		p.logger.Error("Failed to remove file", "path", path, "error", err)
	}
}

func (p *Parser) fail(err error) {
	p.logger.Error("Device transfer parsing failed", "error", err)
	p.state = failedState{err: err}
	p.buffer.reset()
	p.delegate.OnFailure(err)
}
