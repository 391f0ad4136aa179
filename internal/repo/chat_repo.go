// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/domain"
)

// GetChat fetches a chat by Telegram id. Returns ErrNotFound if missing.
func GetChat(ctx context.Context, db *gorm.DB, id int64) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChat inserts a new chat row. IsSource/IsTarget are the classification
// snapshot taken by the caller from static configuration; they are never
// re-derived afterwards.
func CreateChat(ctx context.Context, db *gorm.DB, id int64, title, username *string, chatType string, description *string, isSource, isTarget bool) (*domain.Chat, error) {
	if chatType == "" {
		chatType = domain.ChatTypeUnknown
	}
	c := &domain.Chat{
		ID:          id,
		Title:       title,
		Username:    username,
		Type:        chatType,
		Description: description,
		IsSource:    isSource,
		IsTarget:    isTarget,
		IsActive:    true,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateChatProfile refreshes the mutable profile fields of an existing chat.
// Nil arguments leave the corresponding column untouched; classification
// flags are intentionally not updatable here.
func UpdateChatProfile(ctx context.Context, db *gorm.DB, id int64, title, username, description *string) (*domain.Chat, error) {
	updates := map[string]any{}
	if title != nil {
		updates["title"] = *title
	}
	if username != nil {
		updates["username"] = *username
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) > 0 {
		res := db.WithContext(ctx).Model(&domain.Chat{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetChat(ctx, db, id)
}

// ListSourceChats returns all active chats classified as mirror sources.
func ListSourceChats(ctx context.Context, db *gorm.DB) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("is_source = ? AND is_active = ?", true, true).
		Find(&out).Error
	return out, err
}

// ListTargetChats returns all active chats classified as mirror targets.
func ListTargetChats(ctx context.Context, db *gorm.DB) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("is_target = ? AND is_active = ?", true, true).
		Find(&out).Error
	return out, err
}
