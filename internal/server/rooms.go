package server

import (
	"database/sql"
	"errors"
	"log"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/stats"
	"github.com/linkup-social/chat-engine/internal/types"
)

// RoomManager gates message traffic on explicit room membership: a
// connection may only send into a chat it has joined.
type RoomManager struct {
	db    database.ChatRepository
	state *SessionState
	stats stats.StatsProvider
	log   *log.Logger
}

func NewRoomManager(db database.ChatRepository, state *SessionState, su stats.StatsProvider, logger *log.Logger) *RoomManager {
	return &RoomManager{db: db, state: state, stats: su, log: logger}
}

// Join validates the chat and the caller's participation, records
// membership on both the connection and the chat's broadcast group,
// then verifies the subscription actually registered, reverting on
// failure.
func (rm *RoomManager) Join(c *Client, req *ClientMessage) {
	chatId := req.Join.ChatId
	if chatId == "" {
		c.queueMessage(ErrAck(req.Id, "", CodeValidationError, "chat_id is required"))
		return
	}

	chat, err := rm.db.GetChat(chatId)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			rm.log.Println("GetChat:", err)
		}
		c.queueMessage(ErrAck(req.Id, "", CodeChatNotFound, "chat not found"))
		return
	}
	if !chat.IsActive {
		c.queueMessage(ErrAck(req.Id, "", CodeChatNotFound, "chat not found"))
		return
	}

	if _, ok := chat.Participant(c.user.Id); !ok {
		c.queueMessage(ErrAck(req.Id, "", CodeNotParticipant, "not a participant of this chat"))
		return
	}

	if rm.state.Subscribe(chatId, c) {
		rm.stats.Incr(stats.ActiveRooms)
	}
	c.addRoom(chatId)

	if !rm.state.Subscribed(chatId, c) {
		rm.log.Printf("room subscription for %q did not register, reverting", chatId)
		if rm.state.Unsubscribe(chatId, c) {
			rm.stats.Decr(stats.ActiveRooms)
		}
		c.delRoom(chatId)
		c.queueMessage(ErrAck(req.Id, "", CodeRoomVerificationFailed, "failed to verify room subscription"))
		return
	}

	participants := make([]types.User, len(chat.Participants))
	for i, p := range chat.Participants {
		participants[i] = types.User{
			Id:          p.UserId,
			DisplayName: p.DisplayName,
			IsOnline:    rm.state.IsOnline(p.UserId),
		}
	}

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: req.Id, Timestamp: Now()},
		ChatJoined: &ChatJoinedEvent{
			ChatId:       chatId,
			Participants: participants,
		},
	})

	rm.state.BroadcastToRoom(chatId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		UserJoined: &UserJoinedEvent{
			ChatId:      chatId,
			UserId:      c.user.Id,
			DisplayName: c.user.DisplayName,
		},
		SkipClient: c,
	})
}

func (rm *RoomManager) Leave(c *Client, req *ClientMessage) {
	chatId := req.Leave.ChatId
	if !c.hasJoined(chatId) {
		c.queueMessage(ErrAck(req.Id, "", CodeNotInChatRoom, "not in chat room"))
		return
	}

	if rm.state.Unsubscribe(chatId, c) {
		rm.stats.Decr(stats.ActiveRooms)
	}
	c.delRoom(chatId)
	c.queueMessage(OkAck(req.Id))
}

// LeaveAll clears every membership held by the connection, used on
// disconnect.
func (rm *RoomManager) LeaveAll(c *Client) {
	for _, chatId := range c.joinedRooms() {
		if rm.state.Unsubscribe(chatId, c) {
			rm.stats.Decr(stats.ActiveRooms)
		}
		c.delRoom(chatId)
	}
}
