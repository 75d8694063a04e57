package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/stats"
	"github.com/linkup-social/chat-engine/internal/types"
)

func TestClientQueueMessage(t *testing.T) {
	t.Run("queues while the buffer has room", func(t *testing.T) {
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
		assert.True(t, c.queueMessage(OkAck(1)))
		assert.NotNil(t, recvMessage(t, c).Ack)
	})

	t.Run("drops when the buffer is full", func(t *testing.T) {
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
		c.send = make(chan *ServerMessage, 1)

		assert.True(t, c.queueMessage(OkAck(1)))
		assert.False(t, c.queueMessage(OkAck(2)), "expected the overflow message to be dropped")
	})
}

func TestClientCloseReason(t *testing.T) {
	c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
	assert.Empty(t, c.CloseReason())

	c.setCloseReason("network timeout")
	c.setCloseReason("a later reason")
	assert.Equal(t, "network timeout", c.CloseReason(), "expected the first reason to win")
}

func TestClientRoomTracking(t *testing.T) {
	c := newTestClient(t, "conn-1", types.User{Id: "user-1"})

	assert.False(t, c.hasJoined("chat-1"))
	c.addRoom("chat-1")
	c.addRoom("chat-2")
	assert.True(t, c.hasJoined("chat-1"))
	assert.ElementsMatch(t, []string{"chat-1", "chat-2"}, c.joinedRooms())

	c.delRoom("chat-1")
	assert.False(t, c.hasJoined("chat-1"))
	assert.ElementsMatch(t, []string{"chat-2"}, c.joinedRooms())
}

func TestClientStop(t *testing.T) {
	c := newTestClient(t, "conn-1", types.User{Id: "user-1"})

	c.stopClient()
	c.stopClient() // second stop must not panic

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func TestClientDispatch(t *testing.T) {
	t.Run("unknown operation is rejected", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
		c.chatServer = newTestChatServer(t, db, su)

		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 9}})

		ack := recvMessage(t, c)
		assert.False(t, ack.Ack.Success)
		assert.Equal(t, CodeValidationError, ack.Ack.Code)
		assert.Equal(t, 9, ack.Id)
	})

	t.Run("pong records heartbeat state", func(t *testing.T) {
		db := &database.MockChatRepository{}
		su := &stats.MockStatsUpdater{}

		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
		c.chatServer = newTestChatServer(t, db, su)

		c.dispatch(&ClientMessage{Pong: &Pong{Timestamp: Now()}})

		s, ok := c.chatServer.state.Heartbeat.Stats(c)
		assert.True(t, ok)
		assert.True(t, s.Healthy)
	})

	t.Run("handler panic is isolated", func(t *testing.T) {
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
		// no chat server wired: the handler will panic, dispatch must
		// recover and answer with an internal error
		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 3},
			Send:        &SendMessage{ChatId: "chat-1", ClientMessageId: "cmid-1"},
		})

		ack := recvMessage(t, c)
		assert.False(t, ack.Ack.Success)
		assert.Equal(t, CodeInternalError, ack.Ack.Code)
	})
}
