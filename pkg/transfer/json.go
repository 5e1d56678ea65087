package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope is the JSON shape shared by commands and records:
// {"type": ..., "data": {...}}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TypedRecord is a decoded message payload whose data is left raw for the
// record owner to decode.
type TypedRecord struct {
	Type RecordType      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalCommand serializes cmd inside a command envelope.
func MarshalCommand(cmd Command) ([]byte, error) {
	if !cmd.Action.IsValid() {
		return nil, fmt.Errorf("%w: action %q", ErrInvalidCommand, cmd.Action)
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: commandType, Data: data})
}

// DecodeCommand decodes payload as a command envelope. It succeeds only when
// the envelope carries a data object with a known action, which is what the
// parser relies on to tell commands from records.
func DecodeCommand(payload []byte) (*Command, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal command envelope: %w", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidCommand)
	}
	var cmd Command
	if err := json.Unmarshal(env.Data, &cmd); err != nil {
		return nil, fmt.Errorf("failed to unmarshal command: %w", err)
	}
	if !cmd.Action.IsValid() {
		return nil, fmt.Errorf("%w: action %q", ErrInvalidCommand, cmd.Action)
	}
	return &cmd, nil
}

// MarshalRecord serializes record inside an envelope tagged with recordType.
func MarshalRecord(recordType RecordType, record any) ([]byte, error) {
	if recordType == "" {
		return nil, fmt.Errorf("record type is empty")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return json.Marshal(TypedRecord{Type: recordType, Data: data})
}

// DecodeRecord decodes a message payload into its record type and raw data.
func DecodeRecord(payload []byte) (*TypedRecord, error) {
	var record TypedRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	if record.Type == "" {
		return nil, fmt.Errorf("record type is empty")
	}
	return &record, nil
}
