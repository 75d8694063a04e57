package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkup-social/chat-engine/internal/types"
)

func TestOfflineQueue(t *testing.T) {
	t.Run("enqueue and drain preserve order", func(t *testing.T) {
		q := NewOfflineQueue()

		q.Enqueue("user-1", OfflineEnvelope{
			MessageId: "msg-1",
			ChatId:    "chat-1",
			Message:   &types.Message{Id: "msg-1"},
			QueuedAt:  Now(),
		})
		q.Enqueue("user-1", OfflineEnvelope{
			MessageId: "msg-2",
			ChatId:    "chat-1",
			Message:   &types.Message{Id: "msg-2"},
			QueuedAt:  Now(),
		})
		assert.Equal(t, 2, q.Len("user-1"))

		envs := q.Drain("user-1")
		assert.Len(t, envs, 2)
		assert.Equal(t, "msg-1", envs[0].MessageId)
		assert.Equal(t, "msg-2", envs[1].MessageId)
	})

	t.Run("drain clears the queue", func(t *testing.T) {
		q := NewOfflineQueue()
		q.Enqueue("user-1", OfflineEnvelope{MessageId: "msg-1"})

		q.Drain("user-1")
		assert.Zero(t, q.Len("user-1"))
		assert.Empty(t, q.Drain("user-1"), "expected a second drain to return nothing")
	})

	t.Run("queues are isolated per user", func(t *testing.T) {
		q := NewOfflineQueue()
		q.Enqueue("user-1", OfflineEnvelope{MessageId: "msg-1"})
		q.Enqueue("user-2", OfflineEnvelope{MessageId: "msg-2"})

		envs := q.Drain("user-1")
		assert.Len(t, envs, 1)
		assert.Equal(t, 1, q.Len("user-2"), "expected the other user's queue untouched")
	})
}
