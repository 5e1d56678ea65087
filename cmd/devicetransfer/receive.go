package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rescp17/deviceTransfer/internal/app"
	"github.com/rescp17/deviceTransfer/internal/util"
	"github.com/rescp17/deviceTransfer/pkg/concurrency"
	"github.com/rescp17/deviceTransfer/pkg/fileInfo"
	"github.com/rescp17/deviceTransfer/pkg/receiver"
	"github.com/rescp17/deviceTransfer/pkg/transfer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type receiveOptions struct {
	addr      string
	outputDir string
	once      bool
}

func newReceiveCommand(global *globalOptions) *cobra.Command {
	var opts receiveOptions
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Listen for a sender and restore what it transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			if err := util.EnsureDirectory(opts.outputDir); err != nil {
				return err
			}
			ln, err := net.Listen("tcp", opts.addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", opts.addr, err)
			}
			slog.Info("Waiting for sender", "addr", ln.Addr().String(), "output", opts.outputDir)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, ln, cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "Directory for received attachments")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Exit after the first successful session")
	return cmd
}

// serve accepts senders until ctx is done. Only one session runs at a time;
// a second sender is disconnected immediately.
func serve(ctx context.Context, ln net.Listener, cfg *transfer.Config, opts receiveOptions, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	guard := concurrency.NewGuard()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept failed: %w", err)
			}
			g.Go(func() error {
				defer conn.Close()
				err := guard.Execute(conn.RemoteAddr().String(), func() error {
					return receiveSession(ctx, conn, cfg, opts.outputDir, out)
				})
				switch {
				case errors.Is(err, concurrency.ErrBusy):
					slog.Warn("Rejecting sender", "remote", conn.RemoteAddr().String(), "error", err)
				case err != nil:
					slog.Error("Session failed", "remote", conn.RemoteAddr().String(), "error", err)
				case opts.once:
					cancel()
				}
				return nil
			})
		}
	})

	return g.Wait()
}

type receivedItem struct {
	kind string
	name string
	size int64
}

func receiveSession(ctx context.Context, conn net.Conn, cfg *transfer.Config, outputDir string, out io.Writer) error {
	stopClose := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopClose()

	logger := slog.With("remote", conn.RemoteAddr().String())
	logger.Info("Sender connected")

	progress := app.NewProgress()
	reporter := &progressReporter{w: conn, progress: progress, logger: logger}
	sink := receiver.NewDirSink(outputDir)
	var items []receivedItem
	finished := false

	delegate := receiver.DelegateFuncs{
		Command: func(cmd *transfer.Command) {
			switch cmd.Action {
			case transfer.ActionStart:
				progress.SetTotal(cmd.Total)
				logger.Info("Transfer started", "total", cmd.Total)
			case transfer.ActionFinish:
				finished = true
				logger.Info("Transfer finished")
			default:
				logger.Debug("Ignoring command", "action", cmd.Action)
			}
		},
		Message: func(payload []byte) {
			rec, err := transfer.DecodeRecord(payload)
			if err != nil {
				logger.Warn("Dropping undecodable message", "error", err)
				return
			}
			items = append(items, receivedItem{kind: string(rec.Type), size: int64(len(rec.Data))})
			logger.Debug("Record received", "type", rec.Type, "progress", reporter.advance())
		},
		File: func(path string) {
			item := receivedItem{name: filepath.Base(path), kind: fileInfo.DetectMimeType(path)}
			if info, err := os.Stat(path); err == nil {
				item.size = info.Size()
			}
			items = append(items, item)
			logger.Debug("File received", "path", path, "progress", reporter.advance())
		},
	}

	p := receiver.NewParser(delegate, sink,
		receiver.WithMaxFrameLength(cfg.MaxFrameLength),
		receiver.WithLogger(logger),
	)
	if err := receiver.Receive(ctx, conn, p, cfg.ReadBufferSize); err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			logger.Error("Failed to clean up partial files", "error", abortErr)
		}
		return err
	}
	if !finished {
		logger.Warn("Sender closed the stream without finishing")
	}

	printSummary(out, items, progress)
	return nil
}

// progressReporter advances the session progress and reports it back to the
// sender as a progress command.
type progressReporter struct {
	w        io.Writer
	progress *app.Progress
	logger   *slog.Logger
	broken   bool
}

func (r *progressReporter) advance() int64 {
	processed := r.progress.Advance()
	if r.broken {
		return processed
	}
	frame, err := transfer.ComposeCommand(transfer.NewProgressCommand(r.progress.Fraction() * 100))
	if err != nil {
		r.logger.Warn("Failed to compose progress", "error", err)
		return processed
	}
	if _, err := r.w.Write(frame); err != nil {
		r.logger.Warn("Failed to report progress, sender stopped listening", "error", err)
		r.broken = true
	}
	return processed
}

func printSummary(out io.Writer, items []receivedItem, progress *app.Progress) {
	processed, total := progress.Snapshot()
	fmt.Fprintf(out, "Received %d of %d items\n", processed, total)
	for _, item := range items {
		fmt.Fprintf(out, "  %s %s %s\n",
			util.PadRight(item.kind, 24),
			util.PadRight(item.name, 40),
			util.PadLeft(util.FormatSize(item.size), 12))
	}
}
