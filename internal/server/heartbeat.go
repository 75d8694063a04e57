package server

import (
	"sync"
	"time"
)

const heartbeatInterval = 30 * time.Second

// HeartbeatStats is advisory liveness telemetry for one connection. It
// informs operators and reconnection heuristics; it never closes a
// connection.
type HeartbeatStats struct {
	LastPingAt time.Time
	LastPongAt time.Time
	Latency    time.Duration
	Healthy    bool
}

type HeartbeatTable struct {
	mu    sync.Mutex
	stats map[*Client]*HeartbeatStats
}

func NewHeartbeatTable() *HeartbeatTable {
	return &HeartbeatTable{
		stats: make(map[*Client]*HeartbeatStats),
	}
}

func (h *HeartbeatTable) recordPing(c *Client, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stats[c]
	if s == nil {
		s = &HeartbeatStats{}
		h.stats[c] = s
	}
	s.LastPingAt = at
}

// RecordPong records the echo of a ping carrying sentAt and marks the
// connection healthy.
func (h *HeartbeatTable) RecordPong(c *Client, sentAt, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stats[c]
	if s == nil {
		s = &HeartbeatStats{}
		h.stats[c] = s
	}
	s.LastPongAt = at
	s.Latency = at.Sub(sentAt)
	s.Healthy = true
}

func (h *HeartbeatTable) Stats(c *Client) (HeartbeatStats, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.stats[c]
	if !ok {
		return HeartbeatStats{}, false
	}
	return *s, true
}

func (h *HeartbeatTable) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.stats, c)
}

func (h *HeartbeatTable) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stats)
}

// Monitor periodically sends an application-level ping carrying a
// timestamp and waits for the connection to stop. The connection
// echoes the timestamp back through its pong operation, which records
// latency via RecordPong.
func (h *HeartbeatTable) Monitor(c *Client, interval time.Duration) {
	if interval <= 0 {
		interval = heartbeatInterval
	}

	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		h.Remove(c)
	}()

	for {
		select {
		case <-ticker.C:
			now := Now()
			h.recordPing(c, now)
			c.queueMessage(&ServerMessage{
				BaseMessage: BaseMessage{Timestamp: now},
				Ping:        &PingEvent{Timestamp: now},
			})
		case <-c.stop:
			return
		}
	}
}
