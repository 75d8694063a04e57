package server

import (
	"sync"
)

// SessionState owns every process-wide mutable table the handlers
// share: the user-to-connection registry, the chat room subscription
// index, the burst dedup cache, the typing timer table and the
// heartbeat table. It is created by the connection layer and injected
// into the pipeline, delivery tracker and presence notifier so no
// component reaches into ambient shared state.
type SessionState struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}

	Dedup     *DedupCache
	Typing    *TypingTable
	Heartbeat *HeartbeatTable
}

func NewSessionState(dedupCap int) *SessionState {
	return &SessionState{
		sessions:  make(map[string]map[*Client]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
		Dedup:     NewDedupCache(dedupCap),
		Typing:    NewTypingTable(),
		Heartbeat: NewHeartbeatTable(),
	}
}

// Register adds the connection to the user's session set and reports
// whether the user transitioned offline-to-online, the trigger
// condition for presence broadcast and offline queue drain.
func (s *SessionState) Register(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns := s.sessions[c.user.Id]
	if conns == nil {
		conns = make(map[*Client]struct{})
		s.sessions[c.user.Id] = conns
	}

	cameOnline := len(conns) == 0
	conns[c] = struct{}{}
	return cameOnline
}

// Unregister removes the connection and reports whether the user
// transitioned online-to-offline.
func (s *SessionState) Unregister(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.sessions[c.user.Id]
	if !ok {
		return false
	}

	if _, ok := conns[c]; !ok {
		return false
	}

	delete(conns, c)
	if len(conns) == 0 {
		delete(s.sessions, c.user.Id)
		return true
	}

	return false
}

func (s *SessionState) ConnectionsFor(userId string) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := make([]*Client, 0, len(s.sessions[userId]))
	for c := range s.sessions[userId] {
		conns = append(conns, c)
	}
	return conns
}

func (s *SessionState) IsOnline(userId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[userId]) > 0
}

func (s *SessionState) OnlineUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Subscribe adds the connection to the chat's broadcast group and
// reports whether the group was created by this subscription.
func (s *SessionState) Subscribe(chatId string, c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.rooms[chatId]
	created := subs == nil
	if created {
		subs = make(map[*Client]struct{})
		s.rooms[chatId] = subs
	}
	subs[c] = struct{}{}
	return created
}

// Unsubscribe removes the connection from the chat's broadcast group
// and reports whether the now-empty group was dropped.
func (s *SessionState) Unsubscribe(chatId string, c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subs, ok := s.rooms[chatId]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(s.rooms, chatId)
			return true
		}
	}
	return false
}

// Subscribed reports whether the chat's broadcast group holds the
// connection. Room join uses this as its post-join verification.
func (s *SessionState) Subscribed(chatId string, c *Client) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[chatId][c]
	return ok
}

// RoomClients returns the connections currently subscribed to the
// chat's broadcast group.
func (s *SessionState) RoomClients(chatId string) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]*Client, 0, len(s.rooms[chatId]))
	for c := range s.rooms[chatId] {
		clients = append(clients, c)
	}
	return clients
}

func (s *SessionState) ActiveRooms() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// BroadcastToRoom queues the message on every connection subscribed to
// the chat, skipping msg.SkipClient if set.
func (s *SessionState) BroadcastToRoom(chatId string, msg *ServerMessage) {
	for _, c := range s.RoomClients(chatId) {
		if c == msg.SkipClient {
			continue
		}
		c.queueMessage(msg)
	}
}

// BroadcastToUser queues the message on every one of the user's
// connections.
func (s *SessionState) BroadcastToUser(userId string, msg *ServerMessage) {
	for _, c := range s.ConnectionsFor(userId) {
		if c == msg.SkipClient {
			continue
		}
		c.queueMessage(msg)
	}
}
