package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType enumerates the wire kinds a Message can carry.
type MessageType string

const (
	MessageDirect             MessageType = "direct"
	MessageBroadcast          MessageType = "broadcast"
	MessageStatusUpdate       MessageType = "status_update"
	MessageFinding            MessageType = "finding"
	MessageShutdownRequest    MessageType = "shutdown_request"
	MessageShutdownResponse   MessageType = "shutdown_response"
	MessagePermissionRequest  MessageType = "permission_request"
	MessagePermissionResponse MessageType = "permission_response"
)

// CompletionSentinel is the magic substring a worker embeds in a
// status_update content it sends to the leader to announce completion
// (of its initial task, or by idle timeout). It has no dedicated wire type
// of its own; IsCompletionSignal matches it inside status_update messages.
const CompletionSentinel = "__AGENT_COMPLETED__"

// Message is the one-per-file wire entity exchanged through the mailbox.
type Message struct {
	MsgID     string                 `json:"msg_id"`
	Sender    string                 `json:"sender"`
	Recipient string                 `json:"recipient"`
	Type      MessageType            `json:"type"`
	Content   string                 `json:"content"`
	Ts        float64                `json:"ts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewMsgID returns a fresh 8 hex-character message id.
func NewMsgID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewMessage builds a Message with a fresh id and current timestamp.
func NewMessage(sender, recipient Identity, typ MessageType, content string, meta map[string]interface{}) Message {
	return Message{
		MsgID:     NewMsgID(),
		Sender:    sender.Canonical(),
		Recipient: recipient.Canonical(),
		Type:      typ,
		Content:   content,
		Ts:        float64(time.Now().UnixNano()) / 1e9,
		Metadata:  meta,
	}
}

// SenderIdentity parses the message's sender back into an Identity for
// case-insensitive correlation against an AgentRecord.
func (m Message) SenderIdentity() (Identity, error) {
	return ParseIdentity(m.Sender)
}

// IsCompletionSignal reports whether this is a status_update carrying the
// completion sentinel.
func (m Message) IsCompletionSignal() bool {
	return m.Type == MessageStatusUpdate && strings.Contains(m.Content, CompletionSentinel)
}
