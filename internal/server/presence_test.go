package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/testutil"
	"github.com/linkup-social/chat-engine/internal/types"
)

func TestPresenceNotifier(t *testing.T) {
	t.Run("online transition is persisted and broadcast", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)

		state := NewSessionState(16)
		pn := NewPresenceNotifier(db, state, testutil.TestLogger(t))

		observer := newTestClient(t, "conn-1", types.User{Id: "user-2"})
		state.Subscribe("chat-1", observer)

		db.On("SetUserPresence", "user-1", true, mock.Anything).Return(nil).Once()
		db.On("GetUserChatIds", "user-1").Return([]string{"chat-1"}, nil).Once()

		pn.UserOnline("user-1")

		msg := recvMessage(t, observer)
		assert.NotNil(t, msg.StatusChanged)
		assert.Equal(t, "user-1", msg.StatusChanged.UserId)
		assert.True(t, msg.StatusChanged.IsOnline)
	})

	t.Run("offline transition carries last seen", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)

		state := NewSessionState(16)
		pn := NewPresenceNotifier(db, state, testutil.TestLogger(t))

		observer := newTestClient(t, "conn-1", types.User{Id: "user-2"})
		state.Subscribe("chat-1", observer)

		db.On("SetUserPresence", "user-1", false, mock.Anything).Return(nil).Once()
		db.On("GetUserChatIds", "user-1").Return([]string{"chat-1"}, nil).Once()

		pn.UserOffline("user-1")

		msg := recvMessage(t, observer)
		assert.NotNil(t, msg.StatusChanged)
		assert.False(t, msg.StatusChanged.IsOnline)
		assert.False(t, msg.StatusChanged.LastSeen.IsZero(), "expected last seen to be set")
	})

	t.Run("store failure does not block the broadcast", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)

		state := NewSessionState(16)
		pn := NewPresenceNotifier(db, state, testutil.TestLogger(t))

		observer := newTestClient(t, "conn-1", types.User{Id: "user-2"})
		state.Subscribe("chat-1", observer)

		db.On("SetUserPresence", "user-1", true, mock.Anything).Return(assert.AnError).Once()
		db.On("GetUserChatIds", "user-1").Return([]string{"chat-1"}, nil).Once()

		pn.UserOnline("user-1")

		assert.NotNil(t, recvMessage(t, observer).StatusChanged)
	})
}

func TestClassifyDisconnect(t *testing.T) {
	tt := []struct {
		name            string
		reason          string
		classification  string
		shouldReconnect bool
	}{
		{"server shutdown", "server shutting down", DisconnectServer, false},
		{"service restart", "service restart pending", DisconnectServer, false},
		{"client going away", "websocket: close 1001 (going away)", DisconnectClient, false},
		{"normal closure", "websocket: close 1000 (normal)", DisconnectClient, false},
		{"auth failure", "unauthorized: token expired", DisconnectAuth, false},
		{"policy violation", "websocket: close 1008 (policy violation)", DisconnectAuth, false},
		{"read timeout", "read tcp: i/o timeout", DisconnectNetwork, true},
		{"abnormal closure", "websocket: close 1006 (abnormal closure)", DisconnectNetwork, true},
		{"connection reset", "connection reset by peer", DisconnectNetwork, true},
		{"unrecognized", "something odd happened", DisconnectUnknown, true},
		{"empty reason", "", DisconnectUnknown, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			event := ClassifyDisconnect(tc.reason)
			assert.Equal(t, tc.classification, event.Classification)
			assert.Equal(t, tc.shouldReconnect, event.ShouldReconnect)
			assert.Equal(t, tc.reason, event.Reason)
		})
	}
}
