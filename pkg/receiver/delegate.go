package receiver

import "github.com/rescp17/deviceTransfer/pkg/transfer"

// Delegate receives the units decoded by a Parser. Callbacks run on the
// goroutine calling Ingest, in stream order.
type Delegate interface {
	OnCommand(cmd *transfer.Command)
	// OnMessage receives the raw payload of a frame that did not decode as
	// a command. The slice is owned by the delegate.
	OnMessage(payload []byte)
	// OnFile is called once the file's checksum has been verified. path is
	// where the sink put the content; the file is missing if the sink could
	// not create or fully write it. Files the sink has no destination for
	// are verified but not reported.
	OnFile(path string)
	// OnFailure reports the terminal error; errors.Is matches
	// transfer.ErrUnknownFrameType, ErrChecksumMismatch, ErrFrameTooLarge or
	// ErrMalformedFrame.
	OnFailure(err error)
}

// DelegateFuncs adapts plain functions to Delegate. Nil fields are skipped.
type DelegateFuncs struct {
	Command func(cmd *transfer.Command)
	Message func(payload []byte)
	File    func(path string)
	Failure func(err error)
}

func (d DelegateFuncs) OnCommand(cmd *transfer.Command) {
	if d.Command != nil {
		d.Command(cmd)
	}
}

func (d DelegateFuncs) OnMessage(payload []byte) {
	if d.Message != nil {
		d.Message(payload)
	}
}

func (d DelegateFuncs) OnFile(path string) {
	if d.File != nil {
		d.File(path)
	}
}

func (d DelegateFuncs) OnFailure(err error) {
	if d.Failure != nil {
		d.Failure(err)
	}
}
