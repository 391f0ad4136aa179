// Package services defines the business logic of the mirror engine: entity
// resolution, the per-message dispatch pass, per-mirror delivery, and the
// administrative mirror operations. The package is protocol-agnostic; the
// transport layer normalizes raw chat events into the Inbound type before
// anything here runs.
package services

import "time"

// MediaType is the closed enumeration of media kinds the normalizer can
// produce. Downstream code switches on it instead of re-inspecting raw
// protocol fields.
type MediaType string

// Media kinds, first-match-wins during extraction. The protocol guarantees
// mutual exclusivity in practice.
const (
	MediaPhoto     MediaType = "photo"
	MediaVideo     MediaType = "video"
	MediaDocument  MediaType = "document"
	MediaAudio     MediaType = "audio"
	MediaVoice     MediaType = "voice"
	MediaSticker   MediaType = "sticker"
	MediaAnimation MediaType = "animation"
	MediaVideoNote MediaType = "video_note"
)

// InboundUser is the sender identity extracted from a raw event. Channel
// posts carry no sender; the Inbound.Sender pointer is nil in that case.
type InboundUser struct {
	ID        int64
	Username  *string
	FirstName *string
	LastName  *string
}

// InboundChat is the chat identity and profile extracted from a raw event.
type InboundChat struct {
	ID          int64
	Title       *string
	Username    *string
	Type        string
	Description *string
}

// InboundMedia references one media attachment by its protocol handles:
// FileID is reusable for sends, FileUniqueID is the content-addressed
// uniqueness token.
type InboundMedia struct {
	Type         MediaType
	FileID       string
	FileUniqueID string
}

// InboundForward records forward provenance. A nil pointer on Inbound means
// the message was not forwarded.
type InboundForward struct {
	FromChatID *int64
	FromUserID *int64
	Date       *time.Time
}

// Inbound is the protocol-agnostic representation of one observed message,
// produced by the transport's normalizer as a pure function of the raw event.
type Inbound struct {
	Sender *InboundUser
	Chat   InboundChat

	TelegramID       int64
	Text             *string
	ReplyToMessageID *int64
	MessageThreadID  *int64

	Media   *InboundMedia
	Forward *InboundForward
}
