package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linkup-social/chat-engine/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one live transport session belonging to exactly one
// authenticated user. A user may own several concurrent clients
// (multi-device).
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	remoteAddr string
	send       chan *ServerMessage
	rooms      map[string]struct{}
	roomsLock  sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once

	reasonLock  sync.Mutex
	closeReason string
}

func NewClient(id string, user types.User, conn *websocket.Conn, remoteAddr string, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:         id,
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		remoteAddr: remoteAddr,
		send:       make(chan *ServerMessage, 256),
		rooms:      make(map[string]struct{}),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.setCloseReason(err.Error())
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrAck(0, "", CodeValidationError, "invalid message format"))
			continue
		}

		msg.client = c
		msg.Timestamp = Now()
		c.dispatch(&msg)
	}
}

// dispatch routes one parsed operation to its handler. Handler panics
// are isolated so no single malformed or malicious message can
// terminate the connection.
func (c *Client) dispatch(msg *ClientMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("panic handling message from %q: %v", c.user.Id, r)
			c.queueMessage(ErrAck(msg.Id, "", CodeInternalError, "internal server error"))
		}
	}()

	cs := c.chatServer
	switch {
	case msg.Send != nil:
		c.queueMessage(cs.pipeline.Send(c, msg.Id, msg.Send))
	case msg.SendBatch != nil:
		c.queueMessage(cs.pipeline.SendBatch(c, msg.Id, msg.SendBatch))
	case msg.Join != nil:
		cs.rooms.Join(c, msg)
	case msg.Leave != nil:
		cs.rooms.Leave(c, msg)
	case msg.TypingStart != nil:
		cs.typing.Start(c, msg.TypingStart.ChatId)
	case msg.TypingStop != nil:
		cs.typing.Stop(c, msg.TypingStop.ChatId)
	case msg.MarkRead != nil:
		cs.mutators.MarkRead(c, msg)
	case msg.MarkChatRead != nil:
		cs.mutators.MarkChatRead(c, msg)
	case msg.React != nil:
		cs.mutators.React(c, msg)
	case msg.Edit != nil:
		cs.mutators.Edit(c, msg)
	case msg.Delete != nil:
		cs.mutators.Delete(c, msg)
	case msg.Pong != nil:
		cs.state.Heartbeat.RecordPong(c, msg.Pong.Timestamp, Now())
	default:
		c.queueMessage(ErrAck(msg.Id, "", CodeValidationError, "unknown operation"))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send buffer full for %q, dropping message", c.user.Id)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.deRegisterChan <- c
}

func (c *Client) setCloseReason(reason string) {
	c.reasonLock.Lock()
	defer c.reasonLock.Unlock()
	if c.closeReason == "" {
		c.closeReason = reason
	}
}

func (c *Client) CloseReason() string {
	c.reasonLock.Lock()
	defer c.reasonLock.Unlock()
	return c.closeReason
}

func (c *Client) addRoom(chatId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	c.rooms[chatId] = struct{}{}
}

func (c *Client) delRoom(chatId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	delete(c.rooms, chatId)
}

func (c *Client) hasJoined(chatId string) bool {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()
	_, ok := c.rooms[chatId]
	return ok
}

func (c *Client) joinedRooms() []string {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for chatId := range c.rooms {
		rooms = append(rooms, chatId)
	}
	return rooms
}
