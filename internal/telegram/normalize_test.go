package telegram

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avolkov/tg-mirror/internal/services"
)

func baseMessage() *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 555,
		From: &tgbotapi.User{
			ID:        42,
			UserName:  "alice",
			FirstName: "Alice",
		},
		Chat: &tgbotapi.Chat{
			ID:    -100111,
			Type:  "supergroup",
			Title: "Sources",
		},
		Text: "hello",
	}
}

func TestNormalize_TextMessage(t *testing.T) {
	in := Normalize(baseMessage())

	if in.TelegramID != 555 {
		t.Fatalf("expected telegram id 555, got %d", in.TelegramID)
	}
	if in.Sender == nil || in.Sender.ID != 42 {
		t.Fatalf("expected sender 42, got %+v", in.Sender)
	}
	if in.Sender.Username == nil || *in.Sender.Username != "alice" {
		t.Fatalf("expected username alice, got %v", in.Sender.Username)
	}
	if in.Sender.LastName != nil {
		t.Fatalf("empty last name must normalize to nil, got %v", *in.Sender.LastName)
	}
	if in.Chat.ID != -100111 || in.Chat.Type != "supergroup" {
		t.Fatalf("unexpected chat: %+v", in.Chat)
	}
	if in.Text == nil || *in.Text != "hello" {
		t.Fatalf("expected text hello, got %v", in.Text)
	}
	if in.Media != nil || in.Forward != nil {
		t.Fatalf("plain text must have no media or forward, got %+v %+v", in.Media, in.Forward)
	}
}

func TestNormalize_ChannelPostHasNilSender(t *testing.T) {
	msg := baseMessage()
	msg.From = nil

	in := Normalize(msg)
	if in.Sender != nil {
		t.Fatalf("expected nil sender for channel post, got %+v", in.Sender)
	}
}

func TestNormalize_CaptionFallsBackToText(t *testing.T) {
	msg := baseMessage()
	msg.Text = ""
	msg.Caption = "look at this"
	msg.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", FileUniqueID: "u1", Width: 90},
		{FileID: "large", FileUniqueID: "u2", Width: 800},
	}

	in := Normalize(msg)
	if in.Text == nil || *in.Text != "look at this" {
		t.Fatalf("expected caption as text, got %v", in.Text)
	}
	if in.Media == nil || in.Media.Type != services.MediaPhoto {
		t.Fatalf("expected photo media, got %+v", in.Media)
	}
	if in.Media.FileID != "large" {
		t.Fatalf("expected the largest photo size, got %q", in.Media.FileID)
	}
}

func TestNormalize_MediaKinds(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*tgbotapi.Message)
		want services.MediaType
	}{
		{"video", func(m *tgbotapi.Message) { m.Video = &tgbotapi.Video{FileID: "f", FileUniqueID: "u"} }, services.MediaVideo},
		{"document", func(m *tgbotapi.Message) { m.Document = &tgbotapi.Document{FileID: "f", FileUniqueID: "u"} }, services.MediaDocument},
		{"audio", func(m *tgbotapi.Message) { m.Audio = &tgbotapi.Audio{FileID: "f", FileUniqueID: "u"} }, services.MediaAudio},
		{"voice", func(m *tgbotapi.Message) { m.Voice = &tgbotapi.Voice{FileID: "f", FileUniqueID: "u"} }, services.MediaVoice},
		{"sticker", func(m *tgbotapi.Message) { m.Sticker = &tgbotapi.Sticker{FileID: "f", FileUniqueID: "u"} }, services.MediaSticker},
		{"animation", func(m *tgbotapi.Message) { m.Animation = &tgbotapi.Animation{FileID: "f", FileUniqueID: "u"} }, services.MediaAnimation},
		{"video_note", func(m *tgbotapi.Message) { m.VideoNote = &tgbotapi.VideoNote{FileID: "f", FileUniqueID: "u"} }, services.MediaVideoNote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := baseMessage()
			tc.mut(msg)
			in := Normalize(msg)
			if in.Media == nil || in.Media.Type != tc.want {
				t.Fatalf("expected %s media, got %+v", tc.want, in.Media)
			}
		})
	}
}

func TestNormalize_FirstMatchWins(t *testing.T) {
	// GIFs populate both the document and animation slots; extraction order
	// makes the document slot win.
	msg := baseMessage()
	msg.Document = &tgbotapi.Document{FileID: "doc", FileUniqueID: "u1"}
	msg.Animation = &tgbotapi.Animation{FileID: "anim", FileUniqueID: "u2"}

	in := Normalize(msg)
	if in.Media == nil || in.Media.Type != services.MediaDocument {
		t.Fatalf("expected first-match document, got %+v", in.Media)
	}
}

func TestNormalize_Reply(t *testing.T) {
	msg := baseMessage()
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 500}

	in := Normalize(msg)
	if in.ReplyToMessageID == nil || *in.ReplyToMessageID != 500 {
		t.Fatalf("expected reply id 500, got %v", in.ReplyToMessageID)
	}
}

func TestNormalize_Forward(t *testing.T) {
	msg := baseMessage()
	msg.ForwardFromChat = &tgbotapi.Chat{ID: -200}
	msg.ForwardFrom = &tgbotapi.User{ID: 9}
	msg.ForwardDate = int(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix())

	in := Normalize(msg)
	if in.Forward == nil {
		t.Fatal("expected forward provenance")
	}
	if in.Forward.FromChatID == nil || *in.Forward.FromChatID != -200 {
		t.Fatalf("expected forward chat -200, got %v", in.Forward.FromChatID)
	}
	if in.Forward.FromUserID == nil || *in.Forward.FromUserID != 9 {
		t.Fatalf("expected forward user 9, got %v", in.Forward.FromUserID)
	}
	if in.Forward.Date == nil || in.Forward.Date.Year() != 2024 {
		t.Fatalf("expected forward date, got %v", in.Forward.Date)
	}
}
