// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/domain"
)

// CreateMessageParams carries the extraction results persisted for one
// observed message. Optional fields are nil when the protocol event did not
// carry them.
type CreateMessageParams struct {
	TelegramID int64
	ChatID     int64
	UserID     *int64

	Text              *string
	MediaType         *string
	MediaFileID       *string
	MediaFileUniqueID *string

	ReplyToMessageID *int64
	MessageThreadID  *int64

	IsForwarded       bool
	ForwardFromChatID *int64
	ForwardFromUserID *int64
	ForwardDate       *time.Time
}

// CreateMessage inserts a new message row with mirrored-state zeroed.
func CreateMessage(ctx context.Context, db *gorm.DB, p CreateMessageParams) (*domain.Message, error) {
	m := &domain.Message{
		TelegramID:        p.TelegramID,
		ChatID:            p.ChatID,
		UserID:            p.UserID,
		Text:              p.Text,
		MediaType:         p.MediaType,
		MediaFileID:       p.MediaFileID,
		MediaFileUniqueID: p.MediaFileUniqueID,
		ReplyToMessageID:  p.ReplyToMessageID,
		MessageThreadID:   p.MessageThreadID,
		IsForwarded:       p.IsForwarded,
		ForwardFromChatID: p.ForwardFromChatID,
		ForwardFromUserID: p.ForwardFromUserID,
		ForwardDate:       p.ForwardDate,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by its surrogate key.
func GetMessage(ctx context.Context, db *gorm.DB, id uint) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessageByTelegramID fetches a message by protocol message id within a
// chat. The protocol id is only unique per chat, hence the composite lookup.
func GetMessageByTelegramID(ctx context.Context, db *gorm.DB, telegramID, chatID int64) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("telegram_id = ? AND chat_id = ?", telegramID, chatID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageMirrored records one completed dispatch pass: sets is_mirrored,
// increments mirror_count by exactly one, and overwrites the rendered-image
// artifact path with the most recent render result (nil when the pass did not
// render). Returns ErrNotFound when the message does not exist.
func MarkMessageMirrored(ctx context.Context, db *gorm.DB, id uint, renderedImagePath *string) (*domain.Message, error) {
	res := db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_mirrored":         true,
			"mirror_count":        gorm.Expr("mirror_count + 1"),
			"rendered_image_path": renderedImagePath,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetMessage(ctx, db, id)
}

// ListRecentMessages returns up to limit messages from a chat, newest first.
func ListRecentMessages(ctx context.Context, db *gorm.DB, chatID int64, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ?", chatID).
		Scan(&total).Error
	return total, err
}
