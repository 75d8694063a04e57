package server

import (
	"time"

	"github.com/linkup-social/chat-engine/internal/types"
)

// Machine-readable ack/error codes.
const (
	CodeNotInChatRoom          = "NOT_IN_CHAT_ROOM"
	CodeRateLimited            = "RATE_LIMITED"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeChatNotFound           = "CHAT_NOT_FOUND"
	CodeNotParticipant         = "NOT_PARTICIPANT"
	CodeRoomVerificationFailed = "ROOM_VERIFICATION_FAILED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeBurstDuplicate         = "BURST_DUPLICATE"
	CodeMessageNotFound        = "MESSAGE_NOT_FOUND"
	CodeInternalError          = "INTERNAL_ERROR"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the tagged union of every client-to-server
// operation. Exactly one operation pointer is expected to be set.
type ClientMessage struct {
	BaseMessage
	Send         *SendMessage   `json:"send_message,omitempty"`
	SendBatch    *SendBatch     `json:"send_message_batch,omitempty"`
	Join         *JoinChat      `json:"join_chat,omitempty"`
	Leave        *LeaveChat     `json:"leave_chat,omitempty"`
	TypingStart  *Typing        `json:"typing_start,omitempty"`
	TypingStop   *Typing        `json:"typing_stop,omitempty"`
	MarkRead     *MarkRead      `json:"mark_message_read,omitempty"`
	MarkChatRead *MarkChatRead  `json:"mark_chat_as_read,omitempty"`
	React        *ReactRequest  `json:"react_to_message,omitempty"`
	Edit         *EditRequest   `json:"edit_message,omitempty"`
	Delete       *DeleteRequest `json:"delete_message,omitempty"`
	Pong         *Pong          `json:"pong,omitempty"`
	client       *Client
}

type SendMessage struct {
	ChatId          string               `json:"chat_id"`
	ClientMessageId string               `json:"client_message_id"`
	Type            string               `json:"type"`
	Content         string               `json:"content,omitempty"`
	Media           *types.MediaPayload  `json:"media,omitempty"`
	Attachments     []types.MediaPayload `json:"attachments,omitempty"`
}

type SendBatch struct {
	Messages []SendMessage `json:"messages"`
}

type JoinChat struct {
	ChatId string `json:"chat_id"`
}

type LeaveChat struct {
	ChatId string `json:"chat_id"`
}

type Typing struct {
	ChatId string `json:"chat_id"`
}

type MarkRead struct {
	MessageId string `json:"message_id"`
	ChatId    string `json:"chat_id"`
}

type MarkChatRead struct {
	ChatId string `json:"chat_id"`
}

type ReactRequest struct {
	MessageId string `json:"message_id"`
	ChatId    string `json:"chat_id"`
	Emoji     string `json:"emoji"`
}

type EditRequest struct {
	MessageId string `json:"message_id"`
	ChatId    string `json:"chat_id"`
	Content   string `json:"content"`
}

type DeleteRequest struct {
	MessageId         string `json:"message_id"`
	ChatId            string `json:"chat_id"`
	DeleteForEveryone bool   `json:"delete_for_everyone"`
}

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}

// ServerMessage is the tagged union of every server-to-client event.
type ServerMessage struct {
	BaseMessage
	Ack              *Ack               `json:"ack,omitempty"`
	AckBatch         []*Ack             `json:"ack_batch,omitempty"`
	NewMessage       *types.Message     `json:"new_message,omitempty"`
	Delivered        *DeliveryEvent     `json:"message_delivered,omitempty"`
	Read             *ReadEvent         `json:"message_read,omitempty"`
	Reaction         *ReactionEvent     `json:"message_reaction,omitempty"`
	Edited           *EditEvent         `json:"message_edited,omitempty"`
	Deleted          *DeleteEvent       `json:"message_deleted,omitempty"`
	Typing           *TypingEvent       `json:"user_typing,omitempty"`
	ChatJoined       *ChatJoinedEvent   `json:"chat_joined,omitempty"`
	UserJoined       *UserJoinedEvent   `json:"user_joined_chat,omitempty"`
	StatusChanged    *StatusEvent       `json:"user_status_changed,omitempty"`
	OfflineDelivered []OfflineOutcome   `json:"offline_messages_delivered,omitempty"`
	Disconnect       *DisconnectEvent   `json:"disconnect_reason,omitempty"`
	Ping             *PingEvent         `json:"ping,omitempty"`
	SkipClient       *Client            `json:"-"`
}

// Ack is the synchronous response to a request-style operation.
type Ack struct {
	Success         bool      `json:"success"`
	ClientMessageId string    `json:"client_message_id,omitempty"`
	MessageId       string    `json:"message_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	IsDuplicate     bool      `json:"is_duplicate,omitempty"`
	Error           string    `json:"error,omitempty"`
	Code            string    `json:"code,omitempty"`
	RetryAfter      int       `json:"retry_after,omitempty"`
}

type DeliveryEvent struct {
	MessageId   string    `json:"message_id"`
	ChatId      string    `json:"chat_id"`
	UserId      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type ReadEvent struct {
	MessageIds []string  `json:"message_ids"`
	ChatId     string    `json:"chat_id"`
	UserId     string    `json:"user_id"`
	ReadAt     time.Time `json:"read_at"`
}

type ReactionEvent struct {
	MessageId string           `json:"message_id"`
	ChatId    string           `json:"chat_id"`
	UserId    string           `json:"user_id"`
	Emoji     string           `json:"emoji"`
	Action    string           `json:"action"`
	Reactions []types.Reaction `json:"reactions"`
}

type EditEvent struct {
	MessageId   string            `json:"message_id"`
	ChatId      string            `json:"chat_id"`
	Content     string            `json:"content"`
	EditHistory []types.EditEntry `json:"edit_history"`
	EditedAt    time.Time         `json:"edited_at"`
}

type DeleteEvent struct {
	MessageId string    `json:"message_id"`
	ChatId    string    `json:"chat_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

type TypingEvent struct {
	ChatId      string `json:"chat_id"`
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	IsTyping    bool   `json:"is_typing"`
}

type ChatJoinedEvent struct {
	ChatId       string       `json:"chat_id"`
	Participants []types.User `json:"participants,omitempty"`
}

type UserJoinedEvent struct {
	ChatId      string `json:"chat_id"`
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

type StatusEvent struct {
	UserId   string    `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

type OfflineOutcome struct {
	Success   bool   `json:"success"`
	MessageId string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type DisconnectEvent struct {
	Reason          string `json:"reason"`
	Classification  string `json:"classification"`
	ShouldReconnect bool   `json:"should_reconnect"`
}

type PingEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func SuccessAck(id int, clientMessageId, messageId string, duplicate bool) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Id: id, Timestamp: Now()},
		Ack: &Ack{
			Success:         true,
			ClientMessageId: clientMessageId,
			MessageId:       messageId,
			Timestamp:       Now(),
			IsDuplicate:     duplicate,
		},
	}
}

func ErrAck(id int, clientMessageId, code, errMsg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Id: id, Timestamp: Now()},
		Ack: &Ack{
			ClientMessageId: clientMessageId,
			Timestamp:       Now(),
			Error:           errMsg,
			Code:            code,
		},
	}
}

func RateLimitedAck(id int, clientMessageId string, retryAfter time.Duration) *ServerMessage {
	msg := ErrAck(id, clientMessageId, CodeRateLimited, "rate limited")
	msg.Ack.RetryAfter = int(retryAfter.Seconds() + 0.5)
	if msg.Ack.RetryAfter < 1 {
		msg.Ack.RetryAfter = 1
	}
	return msg
}

func OkAck(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Id: id, Timestamp: Now()},
		Ack:         &Ack{Success: true, Timestamp: Now()},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
