package types

import (
	"time"
)

type User struct {
	Id          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	IsOnline    bool      `json:"is_online,omitempty"`
	LastSeen    time.Time `json:"last_seen,omitempty"`
}

const (
	MessageTypeText     = "text"
	MessageTypeSystem   = "system"
	MessageTypeSticker  = "sticker"
	MessageTypeGif      = "gif"
	MessageTypeVoice    = "voice"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypeDocument = "document"
)

// MediaPayload is the structured payload carried by non-text message
// types. URL is required for every media kind; the remaining fields
// depend on what the client attaches.
type MediaPayload struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Title    string `json:"title,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type Message struct {
	Id              string         `json:"id"`
	ChatId          string         `json:"chat_id"`
	ClientMessageId string         `json:"client_message_id"`
	SenderId        string         `json:"sender_id"`
	Type            string         `json:"type"`
	Content         string         `json:"content,omitempty"`
	Media           *MediaPayload  `json:"media,omitempty"`
	Attachments     []MediaPayload `json:"attachments,omitempty"`
	Reactions       []Reaction     `json:"reactions,omitempty"`
	EditHistory     []EditEntry    `json:"edit_history,omitempty"`
	IsEdited        bool           `json:"is_edited,omitempty"`
	IsDeleted       bool           `json:"is_deleted,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

type Reaction struct {
	UserId    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type EditEntry struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
}
