package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avolkov/tg-mirror/internal/services"
)

// Normalize converts a raw Bot API message into the protocol-agnostic inbound
// form. It is a pure function of its input and never talks to the network.
// Channel posts carry no From; Sender is nil in that case.
func Normalize(msg *tgbotapi.Message) services.Inbound {
	in := services.Inbound{
		TelegramID: int64(msg.MessageID),
		Chat:       normalizeChat(msg.Chat),
	}

	if msg.From != nil {
		in.Sender = &services.InboundUser{
			ID:        msg.From.ID,
			Username:  nonEmpty(msg.From.UserName),
			FirstName: nonEmpty(msg.From.FirstName),
			LastName:  nonEmpty(msg.From.LastName),
		}
	}

	if text := messageText(msg); text != "" {
		in.Text = &text
	}

	if msg.ReplyToMessage != nil {
		id := int64(msg.ReplyToMessage.MessageID)
		in.ReplyToMessageID = &id
	}

	in.Media = extractMedia(msg)
	in.Forward = extractForward(msg)

	return in
}

func normalizeChat(chat *tgbotapi.Chat) services.InboundChat {
	if chat == nil {
		return services.InboundChat{}
	}
	return services.InboundChat{
		ID:          chat.ID,
		Title:       nonEmpty(chat.Title),
		Username:    nonEmpty(chat.UserName),
		Type:        chat.Type,
		Description: nonEmpty(chat.Description),
	}
}

// messageText prefers the text body and falls back to the media caption.
func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// extractMedia inspects the attachment slots in a fixed order and returns the
// first one present. Telegram sets at most one per message.
func extractMedia(msg *tgbotapi.Message) *services.InboundMedia {
	switch {
	case len(msg.Photo) > 0:
		// Photo sizes are ordered smallest to largest; keep the largest.
		ph := msg.Photo[len(msg.Photo)-1]
		return &services.InboundMedia{Type: services.MediaPhoto, FileID: ph.FileID, FileUniqueID: ph.FileUniqueID}
	case msg.Video != nil:
		return &services.InboundMedia{Type: services.MediaVideo, FileID: msg.Video.FileID, FileUniqueID: msg.Video.FileUniqueID}
	case msg.Document != nil:
		return &services.InboundMedia{Type: services.MediaDocument, FileID: msg.Document.FileID, FileUniqueID: msg.Document.FileUniqueID}
	case msg.Audio != nil:
		return &services.InboundMedia{Type: services.MediaAudio, FileID: msg.Audio.FileID, FileUniqueID: msg.Audio.FileUniqueID}
	case msg.Voice != nil:
		return &services.InboundMedia{Type: services.MediaVoice, FileID: msg.Voice.FileID, FileUniqueID: msg.Voice.FileUniqueID}
	case msg.Sticker != nil:
		return &services.InboundMedia{Type: services.MediaSticker, FileID: msg.Sticker.FileID, FileUniqueID: msg.Sticker.FileUniqueID}
	case msg.Animation != nil:
		return &services.InboundMedia{Type: services.MediaAnimation, FileID: msg.Animation.FileID, FileUniqueID: msg.Animation.FileUniqueID}
	case msg.VideoNote != nil:
		return &services.InboundMedia{Type: services.MediaVideoNote, FileID: msg.VideoNote.FileID, FileUniqueID: msg.VideoNote.FileUniqueID}
	}
	return nil
}

func extractForward(msg *tgbotapi.Message) *services.InboundForward {
	if msg.ForwardFrom == nil && msg.ForwardFromChat == nil && msg.ForwardDate == 0 {
		return nil
	}
	fwd := &services.InboundForward{}
	if msg.ForwardFromChat != nil {
		id := msg.ForwardFromChat.ID
		fwd.FromChatID = &id
	}
	if msg.ForwardFrom != nil {
		id := msg.ForwardFrom.ID
		fwd.FromUserID = &id
	}
	if msg.ForwardDate != 0 {
		t := time.Unix(int64(msg.ForwardDate), 0).UTC()
		fwd.Date = &t
	}
	return fwd
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
