package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rescp17/deviceTransfer/internal/util"
	"github.com/rescp17/deviceTransfer/pkg/fileInfo"
	"github.com/rescp17/deviceTransfer/pkg/receiver"
	"github.com/rescp17/deviceTransfer/pkg/sender"
	"github.com/rescp17/deviceTransfer/pkg/transfer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type sendOptions struct {
	addr        string
	recordsPath string
	attachments []string
}

func newSendCommand(global *globalOptions) *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Connect to a receiver and transfer records and attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			tr, err := buildTransfer(opts)
			if err != nil {
				return err
			}
			stats, confirmed, err := send(cmd.Context(), opts.addr, cfg, tr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d records and %d files (%s), skipped %d, receiver confirmed %.0f%%\n",
				stats.Records, stats.Files, util.FormatSize(stats.BytesWritten), stats.Skipped, confirmed)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "Receiver address")
	cmd.Flags().StringVar(&opts.recordsPath, "records", "", "JSON lines file of {\"type\":...,\"data\":{...}} records")
	cmd.Flags().StringSliceVarP(&opts.attachments, "attach", "a", nil, "Files or directories to attach")
	return cmd
}

// send streams tr to the receiver at addr while reading its progress
// reports from the same connection. It returns the last reported percentage.
func send(ctx context.Context, addr string, cfg *transfer.Config, tr sender.Transfer) (sender.Stats, float64, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return sender.Stats{}, 0, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()
	slog.Info("Connected to receiver", "addr", addr)

	g, ctx := errgroup.WithContext(ctx)
	stopClose := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopClose()

	var confirmed float64
	g.Go(func() error {
		p := receiver.NewParser(receiver.DelegateFuncs{
			Command: func(cmd *transfer.Command) {
				if cmd.Action != transfer.ActionProgress {
					slog.Debug("Ignoring command from receiver", "action", cmd.Action)
					return
				}
				confirmed = cmd.Progress
				slog.Info("Receiver progress", "percent", cmd.Progress)
			},
		}, nil, receiver.WithMaxFrameLength(cfg.MaxFrameLength))
		return receiver.Receive(ctx, conn, p, cfg.ReadBufferSize)
	})

	var stats sender.Stats
	g.Go(func() error {
		var err error
		stats, err = sender.NewSender(conn, cfg).Send(ctx, tr)
		if err != nil {
			return err
		}
		// Half-close so the receiver sees the end of the stream and
		// finishes its session.
		if cw, ok := conn.(interface{ CloseWrite() error }); ok {
			return cw.CloseWrite()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, confirmed, err
	}
	return stats, confirmed, nil
}

func buildTransfer(opts sendOptions) (sender.Transfer, error) {
	var tr sender.Transfer
	if opts.recordsPath != "" {
		records, err := loadRecords(opts.recordsPath)
		if err != nil {
			return tr, err
		}
		tr.Records = records
	}
	attachments, err := collectAttachments(opts.attachments)
	if err != nil {
		return tr, err
	}
	tr.Attachments = attachments
	return tr, nil
}

func loadRecords(path string) ([]sender.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records: %w", err)
	}
	defer f.Close()
	return readRecords(f)
}

func readRecords(r io.Reader) ([]sender.Record, error) {
	var records []sender.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), transfer.DefaultMaxMessageSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec transfer.TypedRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}
		if rec.Type == "" {
			return nil, fmt.Errorf("record on line %d has no type", line)
		}
		records = append(records, sender.Record{Type: rec.Type, Data: rec.Data})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// collectAttachments expands directories one level deep. Files named after
// a UUID keep it as their id; others get a fresh one.
func collectAttachments(paths []string) ([]fileInfo.Attachment, error) {
	var attachments []fileInfo.Attachment
	for _, path := range paths {
		exists, isDir, err := util.CheckDirectory(path)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("attachment %s does not exist", path)
		}
		files := []string{path}
		if isDir {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			files = files[:0]
			for _, entry := range entries {
				if entry.Type().IsRegular() {
					files = append(files, filepath.Join(path, entry.Name()))
				}
			}
		}
		for _, file := range files {
			att, err := fileInfo.NewAttachment(attachmentID(file), file)
			if err != nil {
				return nil, err
			}
			attachments = append(attachments, att)
		}
	}
	return attachments, nil
}

func attachmentID(path string) uuid.UUID {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if id, err := uuid.Parse(base); err == nil {
		return id
	}
	return uuid.New()
}
