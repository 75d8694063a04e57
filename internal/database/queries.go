package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func (db *PgChatRepository) GetChat(chatId string) (Chat, error) {
	row := db.conn.QueryRow(
		"SELECT id, chat_type, COALESCE(last_message_id, ''), COALESCE(last_message_at, 'epoch'), is_active, created_at, updated_at "+
			"FROM chats WHERE id = $1 LIMIT 1",
		chatId,
	)

	var chat Chat
	err := row.Scan(
		&chat.Id,
		&chat.Type,
		&chat.LastMessageId,
		&chat.LastMessageAt,
		&chat.IsActive,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return Chat{}, err
	}

	chat.Participants, err = db.GetParticipants(chat.Id)
	if err != nil {
		return Chat{}, fmt.Errorf("get participants: %w", err)
	}

	return chat, nil
}

func (db *PgChatRepository) GetParticipants(chatId string) ([]Participant, error) {
	rows, err := db.conn.Query(
		"SELECT p.chat_id, p.user_id, u.display_name, p.role, p.permissions, p.unread_count, "+
			"COALESCE(p.last_read_at, 'epoch'), p.joined_at "+
			"FROM chat_participants p JOIN users u ON u.id = p.user_id "+
			"WHERE p.chat_id = $1 ORDER BY p.joined_at",
		chatId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(
			&p.ChatId,
			&p.UserId,
			&p.DisplayName,
			&p.Role,
			&p.Permissions,
			&p.UnreadCount,
			&p.LastReadAt,
			&p.JoinedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (db *PgChatRepository) IsParticipant(chatId, userId string) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)",
		chatId, userId,
	)

	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// CreateMessage relies on the unique (chat_id, client_message_id) index
// as the single source of deduplication truth: the insert is attempted
// with ON CONFLICT DO NOTHING, and a conflict falls through to fetching
// the already persisted row.
func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, bool, error) {
	media, err := marshalNullable(params.Media)
	if err != nil {
		return Message{}, false, fmt.Errorf("marshal media: %w", err)
	}
	attachments, err := marshalNullable(params.Attachments)
	if err != nil {
		return Message{}, false, fmt.Errorf("marshal attachments: %w", err)
	}

	res, err := db.conn.Exec(
		"INSERT INTO messages (id, chat_id, client_message_id, sender_id, message_type, content, media, attachments, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) "+
			"ON CONFLICT (chat_id, client_message_id) DO NOTHING",
		params.Id,
		params.ChatId,
		params.ClientMessageId,
		params.SenderId,
		params.Type,
		params.Content,
		media,
		attachments,
		params.CreatedAt,
	)
	if err != nil {
		return Message{}, false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return Message{}, false, err
	}

	row := db.conn.QueryRow(
		"SELECT id FROM messages WHERE chat_id = $1 AND client_message_id = $2 LIMIT 1",
		params.ChatId, params.ClientMessageId,
	)

	var id string
	if err := row.Scan(&id); err != nil {
		return Message{}, false, err
	}

	msg, err := db.GetMessage(id)
	return msg, inserted > 0, err
}

func (db *PgChatRepository) GetMessage(messageId string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, chat_id, client_message_id, sender_id, message_type, content, media, attachments, "+
			"is_edited, is_deleted, COALESCE(deleted_by, ''), deleted_at, created_at, updated_at "+
			"FROM messages WHERE id = $1 LIMIT 1",
		messageId,
	)

	var msg Message
	var media, attachments []byte
	err := row.Scan(
		&msg.Id,
		&msg.ChatId,
		&msg.ClientMessageId,
		&msg.SenderId,
		&msg.Type,
		&msg.Content,
		&media,
		&attachments,
		&msg.IsEdited,
		&msg.IsDeleted,
		&msg.DeletedBy,
		&msg.DeletedAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if len(media) > 0 {
		if err := json.Unmarshal(media, &msg.Media); err != nil {
			return Message{}, fmt.Errorf("unmarshal media: %w", err)
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return Message{}, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}

	if msg.Reactions, err = db.GetReactions(msg.Id); err != nil {
		return Message{}, fmt.Errorf("get reactions: %w", err)
	}
	if msg.EditHistory, err = db.getEditHistory(msg.Id); err != nil {
		return Message{}, fmt.Errorf("get edit history: %w", err)
	}

	return msg, nil
}

func (db *PgChatRepository) getEditHistory(messageId string) ([]EditEntry, error) {
	rows, err := db.conn.Query(
		"SELECT message_id, content, edited_at FROM message_edits "+
			"WHERE message_id = $1 ORDER BY edited_at",
		messageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []EditEntry
	for rows.Next() {
		var e EditEntry
		if err := rows.Scan(&e.MessageId, &e.Content, &e.EditedAt); err != nil {
			return nil, err
		}
		history = append(history, e)
	}

	return history, rows.Err()
}

// UpdateChatOnMessage records the chat's latest message and increments
// the unread count of every participant except the sender.
func (db *PgChatRepository) UpdateChatOnMessage(chatId, messageId, senderId string, sentAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE chats SET last_message_id = $2, last_message_at = $3, updated_at = $3 WHERE id = $1",
		chatId, messageId, sentAt,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"UPDATE chat_participants SET unread_count = unread_count + 1 "+
			"WHERE chat_id = $1 AND user_id <> $2",
		chatId, senderId,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) MarkDelivered(messageId, userId string, at time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO message_deliveries (message_id, user_id, delivered_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (message_id, user_id) DO NOTHING",
		messageId, userId, at,
	)
	return err
}

func (db *PgChatRepository) MarkRead(messageId, userId string, at time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO message_reads (message_id, user_id, read_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (message_id, user_id) DO NOTHING",
		messageId, userId, at,
	)
	return err
}

func (db *PgChatRepository) MarkChatRead(chatId, userId string, at time.Time) ([]string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		"INSERT INTO message_reads (message_id, user_id, read_at) "+
			"SELECT m.id, $2, $3 FROM messages m "+
			"WHERE m.chat_id = $1 AND m.sender_id <> $2 AND NOT m.is_deleted "+
			"AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = $2) "+
			"RETURNING message_id",
		chatId, userId, at,
	)
	if err != nil {
		return nil, err
	}

	var messageIds []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		messageIds = append(messageIds, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		"UPDATE chat_participants SET unread_count = 0, last_read_at = $3 "+
			"WHERE chat_id = $1 AND user_id = $2",
		chatId, userId, at,
	); err != nil {
		return nil, err
	}

	return messageIds, tx.Commit()
}

func (db *PgChatRepository) ToggleReaction(messageId, userId, emoji string, at time.Time) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT INTO message_reactions (message_id, user_id, emoji, created_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (message_id, user_id, emoji) DO NOTHING",
		messageId, userId, emoji, at,
	)
	if err != nil {
		return false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if inserted > 0 {
		return true, nil
	}

	_, err = db.conn.Exec(
		"DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3",
		messageId, userId, emoji,
	)
	return false, err
}

func (db *PgChatRepository) GetReactions(messageId string) ([]Reaction, error) {
	rows, err := db.conn.Query(
		"SELECT message_id, user_id, emoji, created_at FROM message_reactions "+
			"WHERE message_id = $1 ORDER BY created_at",
		messageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.MessageId, &r.UserId, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}

	return reactions, rows.Err()
}

// UpdateMessageContent snapshots the current content into the edit
// history before overwriting it.
func (db *PgChatRepository) UpdateMessageContent(messageId, content string, at time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO message_edits (message_id, content, edited_at) "+
			"SELECT id, content, $2 FROM messages WHERE id = $1 AND NOT is_deleted",
		messageId, at,
	)
	if err != nil {
		return err
	}

	snapshotted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if snapshotted == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.Exec(
		"UPDATE messages SET content = $2, is_edited = TRUE, updated_at = $3 WHERE id = $1",
		messageId, content, at,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) SoftDeleteMessage(messageId, deletedBy string, at time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE messages SET is_deleted = TRUE, deleted_by = $2, deleted_at = $3, updated_at = $3 "+
			"WHERE id = $1 AND NOT is_deleted",
		messageId, deletedBy, at,
	)
	if err != nil {
		return err
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updated == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgChatRepository) SetUserPresence(userId string, online bool, lastSeen time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1",
		userId, online, lastSeen,
	)
	return err
}

func (db *PgChatRepository) GetUserChatIds(userId string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT p.chat_id FROM chat_participants p JOIN chats c ON c.id = p.chat_id "+
			"WHERE p.user_id = $1 AND c.is_active",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatIds []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chatIds = append(chatIds, id)
	}

	return chatIds, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}
