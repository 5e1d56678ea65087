package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/rescp17/deviceTransfer/pkg/transfer"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	logFile    string
	verbose    bool
}

func main() {
	var opts globalOptions
	var logCloser io.Closer

	cmd := &cobra.Command{
		Use:   "devicetransfer",
		Short: "Move conversations and attachments between devices over a framed stream",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, err := setupLogging(opts)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				if err := logCloser.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
				}
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a TOML transfer config")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newReceiveCommand(&opts))
	cmd.AddCommand(newSendCommand(&opts))

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func setupLogging(opts globalOptions) (io.Closer, error) {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stderr
	var closer io.Closer
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closer, nil
}

func loadConfig(path string) (*transfer.Config, error) {
	if path == "" {
		return transfer.DefaultConfig(), nil
	}
	return transfer.LoadConfig(path)
}
