package receiver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileSink stores the content of file frames.
type FileSink interface {
	// Create opens the destination for the file identified by id. The path
	// should be returned even when opening fails so it can be reported.
	Create(id uuid.UUID) (path string, w io.WriteCloser, err error)
	// Remove deletes a file whose content failed verification.
	Remove(path string) error
}

// NameResolver maps a file identifier to a path relative to the sink directory.
type NameResolver func(id uuid.UUID) string

// SinkOption configures a DirSink.
type SinkOption func(*DirSink)

// WithNameResolver stores files under the names returned by resolve instead
// of their lowercase identifier.
func WithNameResolver(resolve NameResolver) SinkOption {
	return func(s *DirSink) {
		s.resolve = resolve
	}
}

// DirSink writes received files into a directory. It tracks open files so
// an owner abandoning a session mid-file can clean up with Abort.
type DirSink struct {
	outputDir string
	resolve   NameResolver

	mu   sync.Mutex
	open map[string]*os.File
}

func NewDirSink(outputDir string, opts ...SinkOption) *DirSink {
	s := &DirSink{
		outputDir: outputDir,
		resolve:   func(id uuid.UUID) string { return id.String() },
		open:      make(map[string]*os.File),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the destination of the file identified by id.
func (s *DirSink) Path(id uuid.UUID) (string, error) {
	name := s.resolve(id)
	if name == "" {
		return "", fmt.Errorf("no destination for file %s", id)
	}
	// Sanitize the name to prevent path traversal
	outputDir := filepath.Clean(s.outputDir)
	outputPath := filepath.Join(outputDir, filepath.Clean(string(filepath.Separator)+name))
	if !strings.HasPrefix(outputPath, outputDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid output path: %s", outputPath)
	}
	return outputPath, nil
}

func (s *DirSink) Create(id uuid.UUID) (string, io.WriteCloser, error) {
	outputPath, err := s.Path(id)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return outputPath, nil, fmt.Errorf("failed to create directory for %s: %w", outputPath, err)
	}
	// An earlier attempt may have left a file behind
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return outputPath, nil, fmt.Errorf("failed to replace existing file %s: %w", outputPath, err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return outputPath, nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}

	s.mu.Lock()
	s.open[outputPath] = file
	s.mu.Unlock()

	slog.Debug("Started receiving file", "id", id.String(), "path", outputPath)
	return outputPath, &sinkFile{File: file, sink: s}, nil
}

// Remove deletes a corrupted file. A missing file is not an error.
func (s *DirSink) Remove(path string) error {
	slog.Info("Cleaning up corrupted file", "path", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove corrupted file %s: %w", path, err)
	}
	return nil
}

// Abort closes and deletes every file still being written. The parser must
// no longer be fed once Abort has been called.
func (s *DirSink) Abort() error {
	s.mu.Lock()
	open := s.open
	s.open = make(map[string]*os.File)
	s.mu.Unlock()

	var errs []error
	for path, file := range open {
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
		slog.Info("Removed partially received file", "path", path)
	}
	return errors.Join(errs...)
}

// sinkFile stops tracking the file once the parser closes it.
type sinkFile struct {
	*os.File
	sink *DirSink
}

func (f *sinkFile) Close() error {
	f.sink.mu.Lock()
	delete(f.sink.open, f.Name())
	f.sink.mu.Unlock()
	return f.File.Close()
}
