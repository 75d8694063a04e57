package server

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/ratelimit"
	"github.com/linkup-social/chat-engine/internal/sanitize"
	"github.com/linkup-social/chat-engine/internal/stats"
	"github.com/linkup-social/chat-engine/internal/types"
)

// Pipeline validates, deduplicates, persists and fans out outbound
// messages. The store's unique (chat_id, client_message_id) index is
// the authoritative dedup mechanism; the in-memory burst cache only
// short-circuits rapid retransmissions.
type Pipeline struct {
	db        database.ChatRepository
	state     *SessionState
	limiter   ratelimit.Limiter
	sanitizer sanitize.Sanitizer
	delivery  *DeliveryTracker
	stats     stats.StatsProvider
	log       *log.Logger
}

func NewPipeline(db database.ChatRepository, state *SessionState, limiter ratelimit.Limiter,
	sanitizer sanitize.Sanitizer, delivery *DeliveryTracker, su stats.StatsProvider, logger *log.Logger) *Pipeline {
	return &Pipeline{
		db:        db,
		state:     state,
		limiter:   limiter,
		sanitizer: sanitizer,
		delivery:  delivery,
		stats:     su,
		log:       logger,
	}
}

// Send runs the full pipeline for one message and returns the ack for
// the caller. A lost race against a concurrent identical request is a
// success with is_duplicate set, never an error.
func (p *Pipeline) Send(c *Client, reqId int, req *SendMessage) *ServerMessage {
	// room membership gates all other validation
	if !c.hasJoined(req.ChatId) {
		return ErrAck(reqId, req.ClientMessageId, CodeNotInChatRoom, "join the chat room before sending")
	}

	if limited, retryAfter := p.limiter.IsRateLimited(c.user.Id, c.remoteAddr, "send_message"); limited {
		return RateLimitedAck(reqId, req.ClientMessageId, retryAfter)
	}

	if err := validateSend(req); err != nil {
		return ErrAck(reqId, req.ClientMessageId, CodeValidationError, err.Error())
	}

	chat, err := p.db.GetChat(req.ChatId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAck(reqId, req.ClientMessageId, CodeChatNotFound, "chat not found")
		}
		p.log.Println("GetChat:", err)
		return ErrAck(reqId, req.ClientMessageId, CodeInternalError, "internal server error")
	}
	if !chat.IsActive {
		return ErrAck(reqId, req.ClientMessageId, CodeChatNotFound, "chat is no longer active")
	}

	participant, ok := chat.Participant(c.user.Id)
	if !ok {
		return ErrAck(reqId, req.ClientMessageId, CodeUnauthorized, "not a participant of this chat")
	}
	if !participant.CanSendMessages() {
		return ErrAck(reqId, req.ClientMessageId, CodeUnauthorized, "no permission to send messages in this chat")
	}

	// sanitize before the burst check and before persistence so both
	// observe the same value
	p.sanitizeRequest(req)

	if p.state.Dedup.CheckAndRecord(req.ChatId, req.ClientMessageId) {
		return ErrAck(reqId, req.ClientMessageId, CodeBurstDuplicate, "duplicate message, retry later")
	}

	now := Now()
	msg, created, err := p.db.CreateMessage(database.CreateMessageParams{
		Id:              uuid.NewString(),
		ChatId:          req.ChatId,
		ClientMessageId: req.ClientMessageId,
		SenderId:        c.user.Id,
		Type:            req.Type,
		Content:         req.Content,
		Media:           req.Media,
		Attachments:     req.Attachments,
		CreatedAt:       now,
	})
	if err != nil {
		p.log.Println("CreateMessage:", err)
		return ErrAck(reqId, req.ClientMessageId, CodeInternalError, "failed to persist message")
	}

	if created {
		p.stats.Incr(stats.MessagesSent)

		if err := p.db.UpdateChatOnMessage(chat.Id, msg.Id, c.user.Id, now); err != nil {
			// the message is durable; chat bookkeeping failure must not
			// fail the send
			p.log.Println("UpdateChatOnMessage:", err)
		}

		p.delivery.FanOut(toWireMessage(msg), chat.Participants, c)
	} else {
		p.stats.Incr(stats.DuplicateMessages)
	}

	return SuccessAck(reqId, req.ClientMessageId, msg.Id, !created)
}

// SendBatch processes messages strictly in array order, one ack per
// input message, because batch order reflects user intent.
func (p *Pipeline) SendBatch(c *Client, reqId int, batch *SendBatch) *ServerMessage {
	acks := make([]*Ack, 0, len(batch.Messages))
	for i := range batch.Messages {
		resp := p.Send(c, reqId, &batch.Messages[i])
		acks = append(acks, resp.Ack)
	}

	return &ServerMessage{
		BaseMessage: BaseMessage{Id: reqId, Timestamp: Now()},
		AckBatch:    acks,
	}
}

// validateSend enforces the per-type content shape.
func validateSend(req *SendMessage) error {
	if req.ClientMessageId == "" {
		return fmt.Errorf("client_message_id is required")
	}
	if req.ChatId == "" {
		return fmt.Errorf("chat_id is required")
	}

	switch req.Type {
	case types.MessageTypeText, types.MessageTypeSystem:
		if req.Content == "" {
			return fmt.Errorf("content is required for %s messages", req.Type)
		}
	case types.MessageTypeSticker, types.MessageTypeGif, types.MessageTypeVoice:
		if req.Media == nil || req.Media.URL == "" {
			return fmt.Errorf("%s messages require a media payload", req.Type)
		}
	case types.MessageTypeImage, types.MessageTypeVideo, types.MessageTypeAudio, types.MessageTypeDocument:
		if req.Media == nil || req.Media.URL == "" {
			return fmt.Errorf("%s messages require a file reference", req.Type)
		}
	default:
		if req.Content == "" && len(req.Attachments) == 0 {
			return fmt.Errorf("message has no content or attachments")
		}
	}

	return nil
}

func (p *Pipeline) sanitizeRequest(req *SendMessage) {
	req.Content = p.sanitizer.Text(req.Content)
	if req.Media != nil {
		p.sanitizeMedia(req.Media)
	}
	for i := range req.Attachments {
		p.sanitizeMedia(&req.Attachments[i])
	}
}

func (p *Pipeline) sanitizeMedia(m *types.MediaPayload) {
	m.URL = p.sanitizer.URL(m.URL)
	m.Caption = p.sanitizer.Text(m.Caption)
	m.Title = p.sanitizer.Text(m.Title)
	m.FileName = p.sanitizer.Text(m.FileName)
}

func toWireMessage(msg database.Message) *types.Message {
	wire := &types.Message{
		Id:              msg.Id,
		ChatId:          msg.ChatId,
		ClientMessageId: msg.ClientMessageId,
		SenderId:        msg.SenderId,
		Type:            msg.Type,
		Content:         msg.Content,
		Media:           msg.Media,
		Attachments:     msg.Attachments,
		IsEdited:        msg.IsEdited,
		IsDeleted:       msg.IsDeleted,
		Timestamp:       msg.CreatedAt,
	}
	wire.Reactions = toWireReactions(msg.Reactions)
	for _, e := range msg.EditHistory {
		wire.EditHistory = append(wire.EditHistory, types.EditEntry{
			Content:  e.Content,
			EditedAt: e.EditedAt,
		})
	}
	return wire
}

func toWireReactions(reactions []database.Reaction) []types.Reaction {
	wire := make([]types.Reaction, 0, len(reactions))
	for _, r := range reactions {
		wire = append(wire, types.Reaction{
			UserId:    r.UserId,
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
		})
	}
	return wire
}
