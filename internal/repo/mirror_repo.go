// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Mirror
// model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/domain"
)

// CreateMirrorParams carries the policy of a new mirror edge.
type CreateMirrorParams struct {
	SourceChatID   int64
	TargetChatID   int64
	TargetTopicID  *int64
	RenderAsImage  bool
	IncludeMedia   bool
	IncludeReplies bool
}

// CreateMirror inserts a new mirror row. Chat-existence preconditions are
// enforced by the service layer, not here; duplicate edges are permitted.
func CreateMirror(ctx context.Context, db *gorm.DB, p CreateMirrorParams) (*domain.Mirror, error) {
	m := &domain.Mirror{
		SourceChatID:   p.SourceChatID,
		TargetChatID:   p.TargetChatID,
		TargetTopicID:  p.TargetTopicID,
		IsActive:       true,
		RenderAsImage:  p.RenderAsImage,
		IncludeMedia:   p.IncludeMedia,
		IncludeReplies: p.IncludeReplies,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMirror fetches a mirror by id. Returns ErrNotFound if missing.
func GetMirror(ctx context.Context, db *gorm.DB, id uint) (*domain.Mirror, error) {
	var m domain.Mirror
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActiveMirrorsForSource returns the active mirrors whose source chat
// equals chatID, in insertion order. This is the dispatch eligibility filter.
func ListActiveMirrorsForSource(ctx context.Context, db *gorm.DB, chatID int64) ([]domain.Mirror, error) {
	var out []domain.Mirror
	err := db.WithContext(ctx).
		Where("source_chat_id = ? AND is_active = ?", chatID, true).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ListActiveMirrors returns all active mirrors in insertion order.
func ListActiveMirrors(ctx context.Context, db *gorm.DB) ([]domain.Mirror, error) {
	var out []domain.Mirror
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ToggleMirror flips the is_active flag of a mirror and returns the updated
// row. Returns ErrNotFound if the mirror does not exist.
func ToggleMirror(ctx context.Context, db *gorm.DB, id uint) (*domain.Mirror, error) {
	m, err := GetMirror(ctx, db, id)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Model(&domain.Mirror{}).
		Where("id = ?", id).
		Update("is_active", !m.IsActive).Error
	if err != nil {
		return nil, err
	}
	return GetMirror(ctx, db, id)
}

// DeleteMirror hard-deletes a mirror. Returns false when the id is unknown.
func DeleteMirror(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Mirror{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
