package telegram

import "errors"

// ErrNoMessage means the update carries no new message (edits, callbacks).
var ErrNoMessage = errors.New("update has no message")

// Update represents an incoming Telegram update
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message represents a Telegram message. At most one of Text, Voice and
// Location is expected to be set.
type Message struct {
	MessageID int64     `json:"message_id"`
	From      *User     `json:"from,omitempty"`
	Chat      Chat      `json:"chat"`
	Date      int64     `json:"date"`
	Text      *string   `json:"text,omitempty"`
	Voice     *Voice    `json:"voice,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// User represents a Telegram user or bot
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Chat represents a Telegram chat
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Voice references a voice note stored on Telegram servers
type Voice struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"` // seconds
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Location is a point shared by the user
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// File is the metadata returned by getFile
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// ReplyParameters threads a reply to an earlier message
type ReplyParameters struct {
	MessageID int64 `json:"message_id"`
}
