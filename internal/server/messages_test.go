package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAckConstructors(t *testing.T) {
	t.Run("success ack", func(t *testing.T) {
		msg := SuccessAck(3, "cmid-1", "msg-1", false)
		assert.Equal(t, 3, msg.Id)
		assert.True(t, msg.Ack.Success)
		assert.Equal(t, "cmid-1", msg.Ack.ClientMessageId)
		assert.Equal(t, "msg-1", msg.Ack.MessageId)
		assert.False(t, msg.Ack.IsDuplicate)
	})

	t.Run("duplicate success ack", func(t *testing.T) {
		msg := SuccessAck(3, "cmid-1", "msg-1", true)
		assert.True(t, msg.Ack.Success)
		assert.True(t, msg.Ack.IsDuplicate)
	})

	t.Run("error ack", func(t *testing.T) {
		msg := ErrAck(4, "cmid-1", CodeChatNotFound, "chat not found")
		assert.False(t, msg.Ack.Success)
		assert.Equal(t, CodeChatNotFound, msg.Ack.Code)
		assert.Equal(t, "chat not found", msg.Ack.Error)
	})

	t.Run("rate limited ack rounds up to whole seconds", func(t *testing.T) {
		tt := []struct {
			delay time.Duration
			want  int
		}{
			{100 * time.Millisecond, 1},
			{time.Second, 1},
			{1400 * time.Millisecond, 1},
			{1600 * time.Millisecond, 2},
			{5 * time.Second, 5},
		}
		for _, tc := range tt {
			msg := RateLimitedAck(1, "cmid-1", tc.delay)
			assert.Equal(t, CodeRateLimited, msg.Ack.Code)
			assert.Equal(t, tc.want, msg.Ack.RetryAfter, "delay %s", tc.delay)
		}
	})
}

func TestClientMessageParsing(t *testing.T) {
	t.Run("send message operation", func(t *testing.T) {
		raw := `{"id":1,"send_message":{"chat_id":"chat-1","client_message_id":"cmid-1","type":"text","content":"hi"}}`

		var msg ClientMessage
		assert.NoError(t, json.Unmarshal([]byte(raw), &msg))
		assert.NotNil(t, msg.Send)
		assert.Equal(t, "chat-1", msg.Send.ChatId)
		assert.Equal(t, "cmid-1", msg.Send.ClientMessageId)
		assert.Nil(t, msg.Join)
	})

	t.Run("media message operation", func(t *testing.T) {
		raw := `{"send_message":{"chat_id":"chat-1","client_message_id":"cmid-1","type":"image",` +
			`"media":{"url":"https://cdn.example.com/a.png","mime_type":"image/png","width":640,"height":480}}}`

		var msg ClientMessage
		assert.NoError(t, json.Unmarshal([]byte(raw), &msg))
		assert.NotNil(t, msg.Send.Media)
		assert.Equal(t, "https://cdn.example.com/a.png", msg.Send.Media.URL)
		assert.Equal(t, 640, msg.Send.Media.Width)
	})

	t.Run("delete message operation", func(t *testing.T) {
		raw := `{"delete_message":{"message_id":"msg-1","chat_id":"chat-1","delete_for_everyone":true}}`

		var msg ClientMessage
		assert.NoError(t, json.Unmarshal([]byte(raw), &msg))
		assert.NotNil(t, msg.Delete)
		assert.True(t, msg.Delete.DeleteForEveryone)
	})
}

func TestServerMessageSerialization(t *testing.T) {
	t.Run("skip client never leaks onto the wire", func(t *testing.T) {
		c := &Client{}
		msg := &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Typing:      &TypingEvent{ChatId: "chat-1", UserId: "user-1", IsTyping: true},
			SkipClient:  c,
		}

		data, err := json.Marshal(msg)
		assert.NoError(t, err)
		assert.NotContains(t, string(data), "SkipClient")
		assert.Contains(t, string(data), `"user_typing"`)
	})

	t.Run("unset operations are omitted", func(t *testing.T) {
		msg := OkAck(1)
		data, err := json.Marshal(msg)
		assert.NoError(t, err)
		assert.Contains(t, string(data), `"ack"`)
		assert.NotContains(t, string(data), `"new_message"`)
		assert.NotContains(t, string(data), `"disconnect_reason"`)
	})
}
