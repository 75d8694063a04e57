package server

import (
	"sync"
	"time"

	"github.com/linkup-social/chat-engine/internal/types"
)

// OfflineEnvelope is one queued message awaiting a recipient's next
// connection.
type OfflineEnvelope struct {
	MessageId string
	ChatId    string
	Message   *types.Message
	QueuedAt  time.Time
}

// OfflineQueue holds per-user pending messages for recipients with no
// live connection. Entries survive only as long as the process; the
// queue is drained in full on the user's first connection of a new
// online period.
type OfflineQueue struct {
	mu      sync.Mutex
	pending map[string][]OfflineEnvelope
}

func NewOfflineQueue() *OfflineQueue {
	return &OfflineQueue{
		pending: make(map[string][]OfflineEnvelope),
	}
}

func (q *OfflineQueue) Enqueue(userId string, env OfflineEnvelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[userId] = append(q.pending[userId], env)
}

// Drain atomically returns and clears every queued envelope for the
// user.
func (q *OfflineQueue) Drain(userId string) []OfflineEnvelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	envs := q.pending[userId]
	delete(q.pending, userId)
	return envs
}

func (q *OfflineQueue) Len(userId string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[userId])
}
