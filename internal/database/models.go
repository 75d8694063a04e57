package database

import (
	"time"

	"github.com/linkup-social/chat-engine/internal/types"
)

// Participant permission bits.
const (
	PermSendMessages = 1 << iota
	PermAddParticipants
	PermEditChatInfo
	PermDeleteMessages
	PermPinMessages
)

type Chat struct {
	Id            string
	Type          string
	LastMessageId string
	LastMessageAt time.Time
	IsActive      bool
	Participants  []Participant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Participant returns the chat participant with the given user id.
func (c Chat) Participant(userId string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.UserId == userId {
			return p, true
		}
	}
	return Participant{}, false
}

type Participant struct {
	ChatId      string
	UserId      string
	DisplayName string
	Role        string
	Permissions int64
	UnreadCount int
	LastReadAt  time.Time
	JoinedAt    time.Time
}

// CanSendMessages reports whether the participant's permission bitset
// allows authoring messages in the chat.
func (p Participant) CanSendMessages() bool {
	return p.Permissions&PermSendMessages != 0
}

type Message struct {
	Id              string
	ChatId          string
	ClientMessageId string
	SenderId        string
	Type            string
	Content         string
	Media           *types.MediaPayload
	Attachments     []types.MediaPayload
	Reactions       []Reaction
	EditHistory     []EditEntry
	IsEdited        bool
	IsDeleted       bool
	DeletedBy       string
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Reaction struct {
	MessageId string
	UserId    string
	Emoji     string
	CreatedAt time.Time
}

type EditEntry struct {
	MessageId string
	Content   string
	EditedAt  time.Time
}

type Delivery struct {
	MessageId   string
	UserId      string
	DeliveredAt time.Time
}

type ReadReceipt struct {
	MessageId string
	UserId    string
	ReadAt    time.Time
}

type CreateMessageParams struct {
	Id              string
	ChatId          string
	ClientMessageId string
	SenderId        string
	Type            string
	Content         string
	Media           *types.MediaPayload
	Attachments     []types.MediaPayload
	CreatedAt       time.Time
}
