package render

import (
	"html/template"
	"strings"
	"time"

	"github.com/avolkov/tg-mirror/internal/domain"
)

// messageTmpl mimics a chat bubble: a sender header, optional reply and
// forward context lines, the message text, and a placeholder for media
// attachments.
var messageTmpl = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { margin: 0; padding: 16px; background: #ffffff; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; }
  .bubble { background: #f1f3f5; border-radius: 12px; padding: 12px 16px; display: inline-block; max-width: 100%; }
  .sender { color: #3390ec; font-weight: 600; font-size: 14px; margin-bottom: 4px; }
  .context { color: #707579; font-size: 12px; border-left: 2px solid #3390ec; padding-left: 8px; margin-bottom: 6px; }
  .text { color: #000000; font-size: 15px; white-space: pre-wrap; word-wrap: break-word; }
  .media { color: #707579; font-size: 13px; font-style: italic; margin-top: 6px; }
  .time { color: #9aa0a6; font-size: 11px; text-align: right; margin-top: 6px; }
</style>
</head>
<body>
<div class="bubble">
  <div class="sender">{{.Sender}}</div>
  {{- if .Forwarded}}
  <div class="context">Forwarded message</div>
  {{- end}}
  {{- if .ReplyLine}}
  <div class="context">{{.ReplyLine}}</div>
  {{- end}}
  {{- if .Text}}
  <div class="text">{{.Text}}</div>
  {{- end}}
  {{- if .MediaLine}}
  <div class="media">{{.MediaLine}}</div>
  {{- end}}
  <div class="time">{{.Timestamp}}</div>
</div>
</body>
</html>
`))

type messageView struct {
	Sender    string
	Forwarded bool
	ReplyLine string
	Text      string
	MediaLine string
	Timestamp string
}

// MessageHTML produces the HTML document for a message. Media and reply
// context lines are included only when the corresponding flags allow it.
func MessageHTML(msg *domain.Message, includeMedia, includeReplies bool) (string, error) {
	view := messageView{
		Sender:    senderName(msg),
		Forwarded: msg.IsForwarded,
		Timestamp: msg.CreatedAt.Format(time.DateTime),
	}
	if msg.Text != nil {
		view.Text = *msg.Text
	}
	if includeReplies && msg.ReplyToMessageID != nil {
		view.ReplyLine = "In reply to an earlier message"
	}
	if includeMedia && msg.MediaType != nil {
		view.MediaLine = mediaLine(*msg.MediaType)
	}

	var b strings.Builder
	if err := messageTmpl.Execute(&b, view); err != nil {
		return "", err
	}
	return b.String(), nil
}

func senderName(msg *domain.Message) string {
	if msg.User == nil {
		if msg.Chat.Title != nil {
			return *msg.Chat.Title
		}
		return "Channel"
	}
	var parts []string
	if msg.User.FirstName != nil {
		parts = append(parts, *msg.User.FirstName)
	}
	if msg.User.LastName != nil {
		parts = append(parts, *msg.User.LastName)
	}
	if len(parts) == 0 && msg.User.Username != nil {
		parts = append(parts, "@"+*msg.User.Username)
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}

func mediaLine(mediaType string) string {
	switch mediaType {
	case "photo":
		return "\U0001F4F7 Photo"
	case "video":
		return "\U0001F3A5 Video"
	case "document":
		return "\U0001F4CE Document"
	case "audio":
		return "\U0001F3B5 Audio"
	case "voice":
		return "\U0001F399 Voice message"
	case "sticker":
		return "\U0001F5BC Sticker"
	case "animation":
		return "\U0001F39E Animation"
	case "video_note":
		return "\U0001F4F9 Video note"
	default:
		return "Attachment"
	}
}
