package server

import (
	"log"
	"strings"

	"github.com/linkup-social/chat-engine/internal/database"
)

// Disconnect classifications, sent to the disconnecting client to
// inform its reconnection strategy.
const (
	DisconnectServer  = "server_initiated"
	DisconnectClient  = "client_initiated"
	DisconnectAuth    = "auth_failure"
	DisconnectNetwork = "network"
	DisconnectUnknown = "unknown"
)

// PresenceNotifier persists online/offline transitions and broadcasts
// them to every chat the user participates in.
type PresenceNotifier struct {
	db    database.ChatRepository
	state *SessionState
	log   *log.Logger
}

func NewPresenceNotifier(db database.ChatRepository, state *SessionState, logger *log.Logger) *PresenceNotifier {
	return &PresenceNotifier{db: db, state: state, log: logger}
}

// UserOnline handles a user's 0-to-1 connection transition.
func (pn *PresenceNotifier) UserOnline(userId string) {
	pn.broadcastStatus(userId, true)
}

// UserOffline handles a user's 1-to-0 connection transition.
func (pn *PresenceNotifier) UserOffline(userId string) {
	pn.broadcastStatus(userId, false)
}

func (pn *PresenceNotifier) broadcastStatus(userId string, online bool) {
	now := Now()
	if err := pn.db.SetUserPresence(userId, online, now); err != nil {
		pn.log.Println("SetUserPresence:", err)
	}

	chatIds, err := pn.db.GetUserChatIds(userId)
	if err != nil {
		pn.log.Println("GetUserChatIds:", err)
		return
	}

	event := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: now},
		StatusChanged: &StatusEvent{
			UserId:   userId,
			IsOnline: online,
			LastSeen: now,
		},
	}
	for _, chatId := range chatIds {
		pn.state.BroadcastToRoom(chatId, event)
	}
}

// ClassifyDisconnect maps a transport-supplied close reason onto the
// disconnect taxonomy. Server-initiated disconnects should not be
// auto-retried in a tight loop; network disconnects should.
func ClassifyDisconnect(reason string) *DisconnectEvent {
	classification := DisconnectUnknown
	lower := strings.ToLower(reason)

	switch {
	case strings.Contains(lower, "server shutting down"),
		strings.Contains(lower, "service restart"),
		strings.Contains(lower, "server disconnect"):
		classification = DisconnectServer
	// "abnormal" must be tested before "normal" matches it
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "abnormal"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "no status"),
		strings.Contains(lower, "connection reset"):
		classification = DisconnectNetwork
	case strings.Contains(lower, "going away"),
		strings.Contains(lower, "normal"),
		strings.Contains(lower, "client disconnect"):
		classification = DisconnectClient
	case strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "auth"),
		strings.Contains(lower, "policy violation"):
		classification = DisconnectAuth
	}

	return &DisconnectEvent{
		Reason:          reason,
		Classification:  classification,
		ShouldReconnect: classification == DisconnectNetwork || classification == DisconnectUnknown,
	}
}
