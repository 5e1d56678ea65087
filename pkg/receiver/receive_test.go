package receiver

import (
	"bytes"
	"context"
	"io"
	"testing"
	"testing/iotest"

	"github.com/rescp17/deviceTransfer/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive(t *testing.T) {
	var stream []byte
	stream = append(stream, composeCommand(t, transfer.NewStartCommand(2))...)
	stream = append(stream, composeMessage(t, map[string]string{"message_id": "m1"})...)
	stream = append(stream, composeFile(t, testFileID, randomContent(20000, 12))...)
	stream = append(stream, composeCommand(t, transfer.NewFinishCommand())...)

	t.Run("whole_stream", func(t *testing.T) {
		rec := &recorder{}
		p := NewParser(rec, NewDirSink(t.TempDir()))
		err := Receive(context.Background(), bytes.NewReader(stream), p, 1000)
		require.NoError(t, err)
		assert.Equal(t, []string{"command", "message", "file", "command"}, rec.kinds())
	})

	t.Run("one_byte_reads", func(t *testing.T) {
		rec := &recorder{}
		p := NewParser(rec, NewDirSink(t.TempDir()))
		err := Receive(context.Background(), iotest.OneByteReader(bytes.NewReader(stream)), p, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"command", "message", "file", "command"}, rec.kinds())
	})

	t.Run("truncated_stream", func(t *testing.T) {
		rec := &recorder{}
		p := NewParser(rec, nil)
		err := Receive(context.Background(), bytes.NewReader(stream[:len(stream)-3]), p, 1000)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.Equal(t, []string{"command", "message", "file"}, rec.kinds())
	})

	t.Run("corrupted_stream", func(t *testing.T) {
		corrupted := bytes.Clone(stream)
		corrupted[transfer.HeaderLength] ^= 0x10

		rec := &recorder{}
		p := NewParser(rec, nil)
		err := Receive(context.Background(), bytes.NewReader(corrupted), p, 1000)
		assert.ErrorIs(t, err, transfer.ErrChecksumMismatch)
		assert.Equal(t, []string{"failure"}, rec.kinds())
	})

	t.Run("read_error", func(t *testing.T) {
		rec := &recorder{}
		p := NewParser(rec, nil)
		err := Receive(context.Background(), iotest.ErrReader(io.ErrClosedPipe), p, 1000)
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rec := &recorder{}
		p := NewParser(rec, nil)
		err := Receive(ctx, bytes.NewReader(stream), p, 1000)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rec.events)
	})
}
