package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/notify"
	"github.com/linkup-social/chat-engine/internal/ratelimit"
	"github.com/linkup-social/chat-engine/internal/sanitize"
	"github.com/linkup-social/chat-engine/internal/stats"
)

const defaultDedupCacheSize = 4096

// ChatServer coordinates connection registration, presence transitions
// and the per-connection handler components. All shared state lives in
// the SessionState it owns.
type ChatServer struct {
	log         *log.Logger
	db          database.ChatRepository
	state       *SessionState
	queue       *OfflineQueue
	pipeline    *Pipeline
	delivery    *DeliveryTracker
	presence    *PresenceNotifier
	typing      *TypingNotifier
	rooms       *RoomManager
	mutators    *Mutators
	stats       stats.StatsProvider
	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}

	HeartbeatInterval time.Duration
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, limiter ratelimit.Limiter,
	sanitizer sanitize.Sanitizer, notifier notify.Notifier, su stats.StatsProvider) (*ChatServer, error) {
	state := NewSessionState(defaultDedupCacheSize)
	queue := NewOfflineQueue()
	delivery := NewDeliveryTracker(db, state, queue, notifier, su, logger)

	cs := &ChatServer{
		log:            logger,
		db:             db,
		state:          state,
		queue:          queue,
		delivery:       delivery,
		pipeline:       NewPipeline(db, state, limiter, sanitizer, delivery, su, logger),
		presence:       NewPresenceNotifier(db, state, logger),
		typing:         NewTypingNotifier(state, logger),
		rooms:          NewRoomManager(db, state, su, logger),
		mutators:       NewMutators(db, state, sanitizer, logger),
		stats:          su,
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, name := range []string{
		stats.ActiveConnections,
		stats.OnlineUsers,
		stats.MessagesSent,
		stats.DuplicateMessages,
		stats.OfflineQueuedMessages,
		stats.ActiveRooms,
	} {
		su.RegisterMetric(name)
	}

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.handleRegister(client)
		case client := <-cs.deRegisterChan:
			cs.handleDeregister(client)
		case <-cs.stop:
			cs.log.Println("stopping connections")
			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.setCloseReason("server shutting down")
				c.queueMessage(&ServerMessage{
					BaseMessage: BaseMessage{Timestamp: Now()},
					Disconnect:  ClassifyDisconnect(c.CloseReason()),
				})
				c.stopClient()
			}
			cs.clientsLock.Unlock()

			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) handleRegister(c *Client) {
	cs.log.Printf("adding connection %q for user %q", c.id, c.user.Id)
	cs.addClient(c)
	cs.stats.Incr(stats.ActiveConnections)

	cameOnline := cs.state.Register(c)
	if cameOnline {
		cs.stats.Incr(stats.OnlineUsers)
		cs.presence.UserOnline(c.user.Id)
		// first connection of a new online period drains the user's
		// offline queue
		cs.delivery.DrainFor(c)
	}

	go cs.state.Heartbeat.Monitor(c, cs.HeartbeatInterval)
}

func (cs *ChatServer) handleDeregister(c *Client) {
	cs.clientsLock.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.clientsLock.Unlock()
		return
	}
	delete(cs.clients, c)
	cs.clientsLock.Unlock()

	cs.log.Printf("removing connection %q for user %q", c.id, c.user.Id)
	cs.stats.Decr(stats.ActiveConnections)

	cs.rooms.LeaveAll(c)
	cs.state.Typing.CancelAll(c.user.Id)

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Disconnect:  ClassifyDisconnect(c.CloseReason()),
	})

	wentOffline := cs.state.Unregister(c)
	if wentOffline {
		cs.stats.Decr(stats.OnlineUsers)
		cs.presence.UserOffline(c.user.Id)
	}

	c.stopClient()
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
