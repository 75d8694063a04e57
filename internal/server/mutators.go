package server

import (
	"database/sql"
	"errors"
	"log"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/sanitize"
)

const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
)

// Mutators implements the post-persistence message mutations: reaction
// toggle, edit with history, soft delete and read receipts. Every
// mutation first verifies the target message is not already deleted.
type Mutators struct {
	db        database.ChatRepository
	state     *SessionState
	sanitizer sanitize.Sanitizer
	log       *log.Logger
}

func NewMutators(db database.ChatRepository, state *SessionState, sanitizer sanitize.Sanitizer, logger *log.Logger) *Mutators {
	return &Mutators{db: db, state: state, sanitizer: sanitizer, log: logger}
}

// fetchLiveMessage loads the message and rejects missing or
// soft-deleted ones with a not-found outcome.
func (m *Mutators) fetchLiveMessage(messageId string) (database.Message, *ServerMessage) {
	msg, err := m.db.GetMessage(messageId)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			m.log.Println("GetMessage:", err)
		}
		return database.Message{}, ErrAck(0, "", CodeMessageNotFound, "message not found")
	}
	if msg.IsDeleted {
		return database.Message{}, ErrAck(0, "", CodeMessageNotFound, "message not found")
	}
	return msg, nil
}

// React toggles the caller's (emoji) reaction on the message and
// broadcasts the full reaction list plus the delta to every chat
// participant, including the actor, for optimistic-UI reconciliation.
func (m *Mutators) React(c *Client, req *ClientMessage) {
	msg, errMsg := m.fetchLiveMessage(req.React.MessageId)
	if errMsg != nil {
		errMsg.Id = req.Id
		c.queueMessage(errMsg)
		return
	}

	isParticipant, err := m.db.IsParticipant(msg.ChatId, c.user.Id)
	if err != nil {
		m.log.Println("IsParticipant:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "internal server error"))
		return
	}
	if !isParticipant {
		c.queueMessage(ErrAck(req.Id, "", CodeUnauthorized, "not a participant of this chat"))
		return
	}

	added, err := m.db.ToggleReaction(msg.Id, c.user.Id, req.React.Emoji, Now())
	if err != nil {
		m.log.Println("ToggleReaction:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "failed to update reaction"))
		return
	}

	reactions, err := m.db.GetReactions(msg.Id)
	if err != nil {
		m.log.Println("GetReactions:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "failed to load reactions"))
		return
	}

	action := ReactionRemoved
	if added {
		action = ReactionAdded
	}

	event := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Reaction: &ReactionEvent{
			MessageId: msg.Id,
			ChatId:    msg.ChatId,
			UserId:    c.user.Id,
			Emoji:     req.React.Emoji,
			Action:    action,
			Reactions: toWireReactions(reactions),
		},
	}
	m.broadcastToParticipants(msg.ChatId, event)

	c.queueMessage(OkAck(req.Id))
}

// Edit overwrites the message content after snapshotting the previous
// content into the edit history. Only the original sender may edit.
func (m *Mutators) Edit(c *Client, req *ClientMessage) {
	msg, errMsg := m.fetchLiveMessage(req.Edit.MessageId)
	if errMsg != nil {
		errMsg.Id = req.Id
		c.queueMessage(errMsg)
		return
	}

	if msg.SenderId != c.user.Id {
		c.queueMessage(ErrAck(req.Id, "", CodeUnauthorized, "only the sender may edit a message"))
		return
	}

	content := m.sanitizer.Text(req.Edit.Content)
	if content == "" {
		c.queueMessage(ErrAck(req.Id, "", CodeValidationError, "content is required"))
		return
	}

	editedAt := Now()
	if err := m.db.UpdateMessageContent(msg.Id, content, editedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(ErrAck(req.Id, "", CodeMessageNotFound, "message not found"))
			return
		}
		m.log.Println("UpdateMessageContent:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "failed to edit message"))
		return
	}

	updated, err := m.db.GetMessage(msg.Id)
	if err != nil {
		m.log.Println("GetMessage after edit:", err)
		updated = msg
		updated.Content = content
	}

	event := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: editedAt},
		Edited: &EditEvent{
			MessageId:   msg.Id,
			ChatId:      msg.ChatId,
			Content:     content,
			EditHistory: toWireMessage(updated).EditHistory,
			EditedAt:    editedAt,
		},
	}
	m.broadcastToParticipants(msg.ChatId, event)

	c.queueMessage(OkAck(req.Id))
}

// Delete soft-deletes the message for everyone when requested by its
// sender, or acknowledges a delete-for-me without persisting anything:
// per-user hiding is left entirely to client-side suppression.
func (m *Mutators) Delete(c *Client, req *ClientMessage) {
	msg, errMsg := m.fetchLiveMessage(req.Delete.MessageId)
	if errMsg != nil {
		errMsg.Id = req.Id
		c.queueMessage(errMsg)
		return
	}

	if !req.Delete.DeleteForEveryone {
		c.queueMessage(OkAck(req.Id))
		return
	}

	if msg.SenderId != c.user.Id {
		c.queueMessage(ErrAck(req.Id, "", CodeUnauthorized, "only the sender may delete for everyone"))
		return
	}

	deletedAt := Now()
	if err := m.db.SoftDeleteMessage(msg.Id, c.user.Id, deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(ErrAck(req.Id, "", CodeMessageNotFound, "message not found"))
			return
		}
		m.log.Println("SoftDeleteMessage:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "failed to delete message"))
		return
	}

	event := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: deletedAt},
		Deleted: &DeleteEvent{
			MessageId: msg.Id,
			ChatId:    msg.ChatId,
			DeletedBy: c.user.Id,
			DeletedAt: deletedAt,
		},
	}
	m.broadcastToParticipants(msg.ChatId, event)

	c.queueMessage(OkAck(req.Id))
}

// MarkRead records a read receipt for a single message.
func (m *Mutators) MarkRead(c *Client, req *ClientMessage) {
	msg, errMsg := m.fetchLiveMessage(req.MarkRead.MessageId)
	if errMsg != nil {
		errMsg.Id = req.Id
		c.queueMessage(errMsg)
		return
	}

	isParticipant, err := m.db.IsParticipant(msg.ChatId, c.user.Id)
	if err != nil {
		m.log.Println("IsParticipant:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "internal server error"))
		return
	}
	if !isParticipant {
		c.queueMessage(ErrAck(req.Id, "", CodeUnauthorized, "not a participant of this chat"))
		return
	}

	readAt := Now()
	if err := m.db.MarkRead(msg.Id, c.user.Id, readAt); err != nil {
		m.log.Println("MarkRead:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "failed to record read receipt"))
		return
	}

	m.state.BroadcastToRoom(msg.ChatId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: readAt},
		Read: &ReadEvent{
			MessageIds: []string{msg.Id},
			ChatId:     msg.ChatId,
			UserId:     c.user.Id,
			ReadAt:     readAt,
		},
		SkipClient: c,
	})

	c.queueMessage(OkAck(req.Id))
}

// MarkChatRead resets the caller's unread count for the chat and marks
// every previously unread message as read by them.
func (m *Mutators) MarkChatRead(c *Client, req *ClientMessage) {
	isParticipant, err := m.db.IsParticipant(req.MarkChatRead.ChatId, c.user.Id)
	if err != nil {
		m.log.Println("IsParticipant:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "internal server error"))
		return
	}
	if !isParticipant {
		c.queueMessage(ErrAck(req.Id, "", CodeUnauthorized, "not a participant of this chat"))
		return
	}

	readAt := Now()
	messageIds, err := m.db.MarkChatRead(req.MarkChatRead.ChatId, c.user.Id, readAt)
	if err != nil {
		m.log.Println("MarkChatRead:", err)
		c.queueMessage(ErrAck(req.Id, "", CodeInternalError, "failed to mark chat as read"))
		return
	}

	if len(messageIds) > 0 {
		m.state.BroadcastToRoom(req.MarkChatRead.ChatId, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: readAt},
			Read: &ReadEvent{
				MessageIds: messageIds,
				ChatId:     req.MarkChatRead.ChatId,
				UserId:     c.user.Id,
				ReadAt:     readAt,
			},
			SkipClient: c,
		})
	}

	c.queueMessage(OkAck(req.Id))
}

// broadcastToParticipants emits the event to every connection of every
// chat participant, online ones only by construction.
func (m *Mutators) broadcastToParticipants(chatId string, event *ServerMessage) {
	participants, err := m.db.GetParticipants(chatId)
	if err != nil {
		m.log.Println("GetParticipants:", err)
		return
	}

	for _, p := range participants {
		m.state.BroadcastToUser(p.UserId, event)
	}
}
