package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rescp17/deviceTransfer/internal/app"
	"github.com/rescp17/deviceTransfer/pkg/checksum"
	"github.com/rescp17/deviceTransfer/pkg/fileInfo"
	"github.com/rescp17/deviceTransfer/pkg/transfer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Record is an application record sent as a message frame.
type Record struct {
	Type transfer.RecordType
	Data any
}

// Transfer is everything sent in one session.
type Transfer struct {
	Records     []Record
	Attachments []fileInfo.Attachment
}

// Stats summarises a finished session.
type Stats struct {
	Records      int
	Files        int
	Skipped      int
	BytesWritten int64
	// Changed counts attachments modified on disk while they were sent.
	// Only tracked when Config.VerifyAttachments is set.
	Changed int
}

// Sender streams a transfer as frames to a writer. Frames are composed on one
// goroutine and written on another; composed but unwritten bytes are bounded
// by the configured in-flight budget.
type Sender struct {
	w        io.Writer
	cfg      *transfer.Config
	composer *transfer.Composer
	progress *app.Progress
}

// NewSender creates a sender writing to w. A nil cfg uses transfer.DefaultConfig.
func NewSender(w io.Writer, cfg *transfer.Config) *Sender {
	if cfg == nil {
		cfg = transfer.DefaultConfig()
	}
	return &Sender{
		w:        w,
		cfg:      cfg,
		composer: transfer.NewComposer(cfg),
		progress: app.NewProgress(),
	}
}

// Progress reports how many items of the current session have been composed.
func (s *Sender) Progress() *app.Progress {
	return s.progress
}

type piece struct {
	data   []byte
	weight int64
}

// Send writes the start command, every record and attachment, then the
// finish command. Items that cannot be composed are skipped and counted; a
// write error or an attachment failing after its header was sent aborts the
// session.
func (s *Sender) Send(ctx context.Context, t Transfer) (Stats, error) {
	var stats Stats
	total := int64(len(t.Records) + len(t.Attachments))
	s.progress.SetTotal(total)
	slog.Info("Starting transfer", "records", len(t.Records), "attachments", len(t.Attachments))

	budget := s.cfg.MaxInFlightBytes
	inFlight := semaphore.NewWeighted(budget)
	pieces := make(chan piece, 16)

	g, ctx := errgroup.WithContext(ctx)

	emit := func(data []byte) error {
		weight := min(int64(len(data)), budget)
		if err := inFlight.Acquire(ctx, weight); err != nil {
			return err
		}
		select {
		case pieces <- piece{data: data, weight: weight}:
			return nil
		case <-ctx.Done():
			inFlight.Release(weight)
			return ctx.Err()
		}
	}

	g.Go(func() error {
		defer close(pieces)

		start, err := s.composer.ComposeCommand(transfer.NewStartCommand(total))
		if err != nil {
			return err
		}
		if err := emit(start); err != nil {
			return err
		}

		for _, record := range t.Records {
			frame, err := s.composer.ComposeMessage(record.Type, record.Data)
			if err != nil {
				slog.Warn("Skipping record", "type", record.Type, "error", err)
				stats.Skipped++
				s.progress.Advance()
				continue
			}
			if err := emit(frame); err != nil {
				return err
			}
			stats.Records++
			s.progress.Advance()
		}

		for _, att := range t.Attachments {
			sent, err := s.sendAttachment(att, emit, &stats)
			if err != nil {
				return err
			}
			if sent {
				stats.Files++
			} else {
				stats.Skipped++
			}
			s.progress.Advance()
		}

		finish, err := s.composer.ComposeCommand(transfer.NewFinishCommand())
		if err != nil {
			return err
		}
		return emit(finish)
	})

	g.Go(func() error {
		for p := range pieces {
			n, err := s.w.Write(p.data)
			stats.BytesWritten += int64(n)
			inFlight.Release(p.weight)
			if err != nil {
				return fmt.Errorf("failed to write frame: %w", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Transfer failed", "error", err)
		return stats, err
	}
	slog.Info("Transfer finished", "records", stats.Records, "files", stats.Files, "skipped", stats.Skipped, "bytes", stats.BytesWritten)
	return stats, nil
}

// sendAttachment streams one file frame. It reports false when the file
// could not be opened, in which case nothing was emitted.
func (s *Sender) sendAttachment(att fileInfo.Attachment, emit func([]byte) error, stats *Stats) (bool, error) {
	chunker, err := transfer.NewFileFrameChunker(att, s.cfg.FileChunkSize)
	if err != nil {
		slog.Warn("Skipping attachment", "id", att.ID.String(), "path", att.Path, "error", err)
		return false, nil
	}
	defer func() {
		if err := chunker.Close(); err != nil {
			slog.Warn("Failed to close attachment", "path", att.Path, "error", err)
		}
	}()

	slog.Debug("Send file", "id", att.ID.String(), "path", att.Path, "size", chunker.ContentLength())
	for {
		data, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			if s.cfg.VerifyAttachments {
				s.verifyAttachment(att, chunker.ContentChecksum(), stats)
			}
			return true, nil
		}
		if err != nil {
			// The header is already on the wire, the stream cannot recover.
			return false, fmt.Errorf("failed to send attachment %s: %w", att.ID, err)
		}
		if err := emit(data); err != nil {
			return false, err
		}
	}
}

func (s *Sender) verifyAttachment(att fileInfo.Attachment, sent uint64, stats *Stats) {
	onDisk, err := checksum.File(att.Path)
	if err != nil {
		slog.Warn("Failed to verify attachment", "id", att.ID.String(), "path", att.Path, "error", err)
		return
	}
	if onDisk != sent {
		slog.Warn("Attachment changed while sending", "id", att.ID.String(), "path", att.Path, "sent", sent, "on_disk", onDisk)
		stats.Changed++
		return
	}
	slog.Debug("Attachment verified", "id", att.ID.String(), "checksum", sent)
}
