package server

import (
	"context"
	"log"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/notify"
	"github.com/linkup-social/chat-engine/internal/stats"
	"github.com/linkup-social/chat-engine/internal/types"
)

// DeliveryTracker fans a persisted message out to every chat
// participant other than the sender. Recipients are processed
// independently: one recipient's store or notification failure never
// blocks delivery to the others.
type DeliveryTracker struct {
	db       database.ChatRepository
	state    *SessionState
	queue    *OfflineQueue
	notifier notify.Notifier
	stats    stats.StatsProvider
	log      *log.Logger
}

func NewDeliveryTracker(db database.ChatRepository, state *SessionState, queue *OfflineQueue,
	notifier notify.Notifier, su stats.StatsProvider, logger *log.Logger) *DeliveryTracker {
	return &DeliveryTracker{
		db:       db,
		state:    state,
		queue:    queue,
		notifier: notifier,
		stats:    su,
		log:      logger,
	}
}

// FanOut delivers msg to each participant except the sender: online
// recipients get the message on every connection plus a deliveredTo
// mark and a delivery receipt back to the sender; offline recipients
// are queued and notified best-effort.
func (dt *DeliveryTracker) FanOut(msg *types.Message, participants []database.Participant, sender *Client) {
	for _, p := range participants {
		if p.UserId == msg.SenderId {
			continue
		}

		if dt.state.IsOnline(p.UserId) {
			dt.deliverOnline(msg, p.UserId, sender)
		} else {
			dt.deliverOffline(msg, p.UserId, sender)
		}
	}
}

func (dt *DeliveryTracker) deliverOnline(msg *types.Message, userId string, sender *Client) {
	event := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		NewMessage:  msg,
	}
	for _, conn := range dt.state.ConnectionsFor(userId) {
		conn.queueMessage(event)
	}

	deliveredAt := Now()
	if err := dt.db.MarkDelivered(msg.Id, userId, deliveredAt); err != nil {
		dt.log.Printf("MarkDelivered %s for %s: %v", msg.Id, userId, err)
		return
	}

	if sender != nil {
		sender.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: deliveredAt},
			Delivered: &DeliveryEvent{
				MessageId:   msg.Id,
				ChatId:      msg.ChatId,
				UserId:      userId,
				DeliveredAt: deliveredAt,
			},
		})
	}
}

func (dt *DeliveryTracker) deliverOffline(msg *types.Message, userId string, sender *Client) {
	dt.queue.Enqueue(userId, OfflineEnvelope{
		MessageId: msg.Id,
		ChatId:    msg.ChatId,
		Message:   msg,
		QueuedAt:  Now(),
	})
	dt.stats.Incr(stats.OfflineQueuedMessages)

	senderName := ""
	if sender != nil {
		senderName = sender.user.DisplayName
	}

	// push notifications are best-effort, failures are logged and
	// swallowed
	err := dt.notifier.Notify(context.Background(), userId, notify.Payload{
		MessageId:  msg.Id,
		ChatId:     msg.ChatId,
		SenderId:   msg.SenderId,
		SenderName: senderName,
		Preview:    preview(msg),
		SentAt:     msg.Timestamp,
	})
	if err != nil {
		dt.log.Printf("notify %s: %v", userId, err)
	}
}

// DrainFor delivers every queued message to the freshly connected
// client, marking each one delivered in the store before emitting it.
// Malformed entries are skipped and reported rather than aborting the
// drain.
func (dt *DeliveryTracker) DrainFor(c *Client) {
	envs := dt.queue.Drain(c.user.Id)
	if len(envs) == 0 {
		return
	}

	outcomes := make([]OfflineOutcome, 0, len(envs))
	for _, env := range envs {
		if env.Message == nil || env.MessageId == "" {
			dt.log.Printf("skipping malformed offline entry for %s", c.user.Id)
			outcomes = append(outcomes, OfflineOutcome{Error: "malformed queue entry"})
			continue
		}

		if err := dt.db.MarkDelivered(env.MessageId, c.user.Id, Now()); err != nil {
			dt.log.Printf("MarkDelivered %s for %s: %v", env.MessageId, c.user.Id, err)
			outcomes = append(outcomes, OfflineOutcome{MessageId: env.MessageId, Error: "failed to record delivery"})
			continue
		}

		c.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			NewMessage:  env.Message,
		})
		outcomes = append(outcomes, OfflineOutcome{Success: true, MessageId: env.MessageId})
	}

	c.queueMessage(&ServerMessage{
		BaseMessage:      BaseMessage{Timestamp: Now()},
		OfflineDelivered: outcomes,
	})
}

func preview(msg *types.Message) string {
	if msg.Content == "" {
		return msg.Type
	}

	const max = 80
	runes := []rune(msg.Content)
	if len(runes) > max {
		return string(runes[:max])
	}
	return msg.Content
}
