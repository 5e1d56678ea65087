package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rescp17/deviceTransfer/pkg/transfer"
)

// Receive reads r in chunks of bufSize bytes and feeds them to p until the
// stream ends, ctx is cancelled or the parser fails. A stream ending in the
// middle of a frame yields io.ErrUnexpectedEOF.
func Receive(ctx context.Context, r io.Reader, p *Parser, bufSize int) error {
	if bufSize <= 0 {
		bufSize = transfer.DefaultReadBufferSize
	}
	buf := make([]byte, bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			p.Ingest(buf[:n])
			if perr := p.Err(); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			if p.State() != StateEmpty || p.buffer.len() > 0 {
				return fmt.Errorf("stream ended while %s: %w", p.State(), io.ErrUnexpectedEOF)
			}
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}
