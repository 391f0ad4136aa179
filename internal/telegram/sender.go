package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avolkov/tg-mirror/internal/services"
)

// topicID addressing rides on ReplyToMessageID: replying to a forum topic's
// opener message places the send inside that topic.

// CopyMessage re-posts an existing message into the target chat without a
// forward header.
func (c *Client) CopyMessage(_ context.Context, targetChatID, sourceChatID, messageID int64, topicID *int64) error {
	conf := tgbotapi.NewCopyMessage(targetChatID, sourceChatID, int(messageID))
	if topicID != nil {
		conf.ReplyToMessageID = int(*topicID)
	}
	if _, err := c.bot.CopyMessage(conf); err != nil {
		return fmt.Errorf("copying message %d from %d to %d: %w", messageID, sourceChatID, targetChatID, err)
	}
	return nil
}

// SendPhoto uploads a local image file to the chat.
func (c *Client) SendPhoto(_ context.Context, chatID int64, path string, topicID *int64) error {
	conf := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	if topicID != nil {
		conf.ReplyToMessageID = int(*topicID)
	}
	if _, err := c.bot.Send(conf); err != nil {
		return fmt.Errorf("sending photo to %d: %w", chatID, err)
	}
	return nil
}

// SendText posts a plain text message, optionally inside a topic.
func (c *Client) SendText(_ context.Context, chatID int64, text string, topicID *int64) error {
	conf := tgbotapi.NewMessage(chatID, text)
	conf.DisableWebPagePreview = true
	if topicID != nil {
		conf.ReplyToMessageID = int(*topicID)
	}
	if _, err := c.bot.Send(conf); err != nil {
		return fmt.Errorf("sending text to %d: %w", chatID, err)
	}
	return nil
}

// SendMedia re-uploads a local media file as the given media kind. It backs
// the copy fallback path, where the original file was fetched by file id and
// must be posted anew.
func (c *Client) SendMedia(_ context.Context, chatID int64, mediaType services.MediaType, path string, caption *string, topicID *int64) error {
	file := tgbotapi.FilePath(path)

	var conf tgbotapi.Chattable
	switch mediaType {
	case services.MediaPhoto:
		m := tgbotapi.NewPhoto(chatID, file)
		applyCaption(&m.BaseFile, &m.Caption, caption, topicID)
		conf = m
	case services.MediaVideo:
		m := tgbotapi.NewVideo(chatID, file)
		applyCaption(&m.BaseFile, &m.Caption, caption, topicID)
		conf = m
	case services.MediaAudio:
		m := tgbotapi.NewAudio(chatID, file)
		applyCaption(&m.BaseFile, &m.Caption, caption, topicID)
		conf = m
	case services.MediaVoice:
		m := tgbotapi.NewVoice(chatID, file)
		applyCaption(&m.BaseFile, &m.Caption, caption, topicID)
		conf = m
	case services.MediaAnimation:
		m := tgbotapi.NewAnimation(chatID, file)
		applyCaption(&m.BaseFile, &m.Caption, caption, topicID)
		conf = m
	case services.MediaVideoNote:
		m := tgbotapi.NewVideoNote(chatID, 0, file)
		if topicID != nil {
			m.ReplyToMessageID = int(*topicID)
		}
		conf = m
	default:
		m := tgbotapi.NewDocument(chatID, file)
		applyCaption(&m.BaseFile, &m.Caption, caption, topicID)
		conf = m
	}

	if _, err := c.bot.Send(conf); err != nil {
		return fmt.Errorf("sending %s to %d: %w", mediaType, chatID, err)
	}
	return nil
}

func applyCaption(base *tgbotapi.BaseFile, target *string, caption *string, topicID *int64) {
	if caption != nil {
		*target = *caption
	}
	if topicID != nil {
		base.ReplyToMessageID = int(*topicID)
	}
}

// DownloadFile resolves a Bot API file id and streams the file contents to a
// local path.
func (c *Client) DownloadFile(ctx context.Context, fileID, destPath string) error {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("resolving file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.Token), nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading file %s: unexpected status %s", fileID, resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}

// GetChat fetches the chat profile from the protocol, confirming the account
// can actually see the chat.
func (c *Client) GetChat(_ context.Context, chatID int64) (*tgbotapi.Chat, error) {
	chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching chat %d: %w", chatID, err)
	}
	return &chat, nil
}

// EditText rewrites a previously sent message, used for in-place progress
// updates during bulk copies.
func (c *Client) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	conf := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := c.bot.Send(conf); err != nil {
		return fmt.Errorf("editing message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}
