package transfer

import (
	"errors"

	"github.com/rescp17/deviceTransfer/pkg/checksum"
)

// Kind is the leading byte of every frame. Values start at 1 so a zeroed
// stream is rejected as an unknown type rather than read as a command.
type Kind byte

const (
	KindCommand Kind = 0x01
	KindMessage Kind = 0x02
	KindFile    Kind = 0x03
)

// Byte lengths of the fixed frame fields.
const (
	KindLength     = 1
	LengthLength   = 4
	ChecksumLength = checksum.Size
	FileIDLength   = 16

	// HeaderLength is kind plus payload length.
	HeaderLength = KindLength + LengthLength
	// FileHeaderLength is the header of a file frame including its identifier.
	FileHeaderLength = HeaderLength + FileIDLength
)

var (
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrChecksumMismatch = errors.New("mismatched checksum")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrMessageTooLarge  = errors.New("message data too large")
	ErrInvalidCommand   = errors.New("invalid command")
)

// ParseKind returns the kind for b and whether it is known.
func ParseKind(b byte) (Kind, bool) {
	switch k := Kind(b); k {
	case KindCommand, KindMessage, KindFile:
		return k, true
	default:
		return 0, false
	}
}

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindMessage:
		return "message"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Action is what a command asks the remote side to do.
type Action string

const (
	ActionConnect  Action = "connect"
	ActionStart    Action = "start"
	ActionPull     Action = "pull"
	ActionPush     Action = "push"
	ActionFinish   Action = "finish"
	ActionProgress Action = "progress"
	ActionCancel   Action = "cancel"
)

// IsValid reports whether a is one of the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionConnect, ActionStart, ActionPull, ActionPush, ActionFinish, ActionProgress, ActionCancel:
		return true
	default:
		return false
	}
}

// Command is a control instruction exchanged between the two devices.
type Command struct {
	Action    Action  `json:"action"`
	Version   int     `json:"version,omitempty"`
	IP        string  `json:"ip,omitempty"`
	Port      int     `json:"port,omitempty"`
	SecretKey string  `json:"secret_key,omitempty"`
	Code      int     `json:"code,omitempty"`
	Total     int64   `json:"total,omitempty"`
	UserID    string  `json:"user_id,omitempty"`
	Progress  float64 `json:"progress,omitempty"`
	Platform  string  `json:"platform,omitempty"`
}

// NewStartCommand announces a transfer of total items.
func NewStartCommand(total int64) Command {
	return Command{Action: ActionStart, Total: total}
}

func NewFinishCommand() Command {
	return Command{Action: ActionFinish}
}

// NewProgressCommand reports the percentage (0-100) of announced items the
// receiver has processed.
func NewProgressCommand(progress float64) Command {
	return Command{Action: ActionProgress, Progress: progress}
}

// RecordType tags the application record carried by a message frame.
type RecordType string

const (
	RecordConversation      RecordType = "conversation"
	RecordParticipant       RecordType = "participant"
	RecordUser              RecordType = "user"
	RecordApp               RecordType = "app"
	RecordAsset             RecordType = "asset"
	RecordSnapshot          RecordType = "snapshot"
	RecordSticker           RecordType = "sticker"
	RecordPinMessage        RecordType = "pin_message"
	RecordTranscriptMessage RecordType = "transcript_message"
	RecordMessage           RecordType = "message"
	RecordMessageMention    RecordType = "message_mention"
	RecordExpiredMessage    RecordType = "expired_message"
)

// commandType is the envelope type of a serialized command.
const commandType = "command"
