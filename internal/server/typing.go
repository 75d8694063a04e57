package server

import (
	"log"
	"sync"
	"time"
)

const typingStopDelay = 3 * time.Second

type typingKey struct {
	userId string
	chatId string
}

// TypingTable tracks one cancellable auto-stop timer per (user, chat)
// pair. A start signal replaces any armed timer; stop and disconnect
// cancel it.
type TypingTable struct {
	mu     sync.Mutex
	timers map[typingKey]*time.Timer
	delay  time.Duration
}

func NewTypingTable() *TypingTable {
	return &TypingTable{
		timers: make(map[typingKey]*time.Timer),
		delay:  typingStopDelay,
	}
}

// Arm schedules onExpire to run after the typing-stop delay, replacing
// any existing timer for the pair so only one stop fires per quiet
// period.
func (t *TypingTable) Arm(userId, chatId string, onExpire func()) {
	key := typingKey{userId: userId, chatId: chatId}

	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Stop()
	}

	t.timers[key] = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
		onExpire()
	})
}

// Cancel stops the pair's timer if armed, reporting whether one was.
func (t *TypingTable) Cancel(userId, chatId string) bool {
	key := typingKey{userId: userId, chatId: chatId}

	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.timers[key]
	if !ok {
		return false
	}

	timer.Stop()
	delete(t.timers, key)
	return true
}

// CancelAll stops every timer belonging to the user, used on
// disconnect so no stop-broadcast fires after the user has left.
func (t *TypingTable) CancelAll(userId string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		if key.userId == userId {
			timer.Stop()
			delete(t.timers, key)
		}
	}
}

func (t *TypingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// TypingNotifier broadcasts typing state to a chat's joined
// connections, excluding the typist.
type TypingNotifier struct {
	state *SessionState
	log   *log.Logger
}

func NewTypingNotifier(state *SessionState, logger *log.Logger) *TypingNotifier {
	return &TypingNotifier{state: state, log: logger}
}

func (tn *TypingNotifier) Start(c *Client, chatId string) {
	if !c.hasJoined(chatId) {
		return
	}

	tn.broadcast(c, chatId, true)
	tn.state.Typing.Arm(c.user.Id, chatId, func() {
		tn.broadcast(c, chatId, false)
	})
}

func (tn *TypingNotifier) Stop(c *Client, chatId string) {
	tn.state.Typing.Cancel(c.user.Id, chatId)
	tn.broadcast(c, chatId, false)
}

func (tn *TypingNotifier) broadcast(c *Client, chatId string, isTyping bool) {
	tn.state.BroadcastToRoom(chatId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Typing: &TypingEvent{
			ChatId:      chatId,
			UserId:      c.user.Id,
			DisplayName: c.user.DisplayName,
			IsTyping:    isTyping,
		},
		SkipClient: c,
	})
}
