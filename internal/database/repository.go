package database

import "time"

type ChatRepository interface {
	Ping() error
	GetChat(chatId string) (Chat, error)
	GetParticipants(chatId string) ([]Participant, error)
	IsParticipant(chatId, userId string) (bool, error)
	// CreateMessage atomically inserts a message unless one already
	// exists for the same (chatId, clientMessageId) pair. It returns
	// the persisted message and whether this call created it.
	CreateMessage(params CreateMessageParams) (Message, bool, error)
	GetMessage(messageId string) (Message, error)
	UpdateChatOnMessage(chatId, messageId, senderId string, sentAt time.Time) error
	MarkDelivered(messageId, userId string, at time.Time) error
	MarkRead(messageId, userId string, at time.Time) error
	// MarkChatRead resets the user's unread count for the chat and
	// marks every message they had not yet read. It returns the ids of
	// the messages that were marked.
	MarkChatRead(chatId, userId string, at time.Time) ([]string, error)
	// ToggleReaction adds the (userId, emoji) reaction if absent and
	// removes it otherwise, reporting whether it was added.
	ToggleReaction(messageId, userId, emoji string, at time.Time) (bool, error)
	GetReactions(messageId string) ([]Reaction, error)
	UpdateMessageContent(messageId, content string, at time.Time) error
	SoftDeleteMessage(messageId, deletedBy string, at time.Time) error
	SetUserPresence(userId string, online bool, lastSeen time.Time) error
	GetUserChatIds(userId string) ([]string, error)
}
