package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linkup-social/chat-engine/internal/types"
)

func TestHeartbeatTable(t *testing.T) {
	t.Run("pong records latency and health", func(t *testing.T) {
		table := NewHeartbeatTable()
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})

		sentAt := Now()
		receivedAt := sentAt.Add(40 * time.Millisecond)
		table.RecordPong(c, sentAt, receivedAt)

		s, ok := table.Stats(c)
		assert.True(t, ok, "expected stats for the connection")
		assert.True(t, s.Healthy)
		assert.Equal(t, 40*time.Millisecond, s.Latency)
		assert.Equal(t, receivedAt, s.LastPongAt)
	})

	t.Run("remove forgets the connection", func(t *testing.T) {
		table := NewHeartbeatTable()
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})

		table.RecordPong(c, Now(), Now())
		table.Remove(c)

		_, ok := table.Stats(c)
		assert.False(t, ok)
		assert.Zero(t, table.Len())
	})
}

func TestHeartbeatMonitor(t *testing.T) {
	t.Run("emits periodic pings", func(t *testing.T) {
		table := NewHeartbeatTable()
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})
		defer c.stopClient()

		go table.Monitor(c, 10*time.Millisecond)

		msg := recvMessage(t, c)
		assert.NotNil(t, msg.Ping, "expected a ping event")
		assert.False(t, msg.Ping.Timestamp.IsZero())

		s, ok := table.Stats(c)
		assert.True(t, ok)
		assert.False(t, s.LastPingAt.IsZero(), "expected the ping to be recorded")
	})

	t.Run("stops and cleans up when the client stops", func(t *testing.T) {
		table := NewHeartbeatTable()
		c := newTestClient(t, "conn-1", types.User{Id: "user-1"})

		done := make(chan struct{})
		go func() {
			table.Monitor(c, 10*time.Millisecond)
			close(done)
		}()

		recvMessage(t, c)
		c.stopClient()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expected monitor to exit")
		}
		assert.Zero(t, table.Len(), "expected stats removed on exit")
	})
}
