// Package services – MirrorService
//
// Administrative operations on mirror configurations. These are thin: the
// only business rule is the creation precondition that both chats must
// already be known. Reachability of the chats over the protocol is validated
// by the caller before invoking CreateMirror.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/domain"
	"github.com/avolkov/tg-mirror/internal/repo"
)

// MirrorService manages the lifecycle of mirror configuration edges.
type MirrorService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// CreateMirror creates a directed mirror edge. Both chats must already exist
// as Chat records; otherwise ErrSourceChatUnknown or ErrTargetChatUnknown is
// returned and nothing is persisted. Duplicate edges are permitted.
func (s *MirrorService) CreateMirror(ctx context.Context, sourceChatID, targetChatID int64, targetTopicID *int64, renderAsImage, includeMedia, includeReplies bool) (*domain.Mirror, error) {
	if _, err := repo.GetChat(ctx, s.DB, sourceChatID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSourceChatUnknown
		}
		return nil, fmt.Errorf("looking up source chat: %w", err)
	}
	if _, err := repo.GetChat(ctx, s.DB, targetChatID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTargetChatUnknown
		}
		return nil, fmt.Errorf("looking up target chat: %w", err)
	}

	m, err := repo.CreateMirror(ctx, s.DB, repo.CreateMirrorParams{
		SourceChatID:   sourceChatID,
		TargetChatID:   targetChatID,
		TargetTopicID:  targetTopicID,
		RenderAsImage:  renderAsImage,
		IncludeMedia:   includeMedia,
		IncludeReplies: includeReplies,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mirror: %w", err)
	}

	s.Log.Info().
		Uint("mirror_id", m.ID).
		Int64("source_chat_id", sourceChatID).
		Int64("target_chat_id", targetChatID).
		Msg("created mirror")
	return m, nil
}

// ToggleMirror flips the is_active flag. Returns ErrMirrorNotFound for an
// unknown id.
func (s *MirrorService) ToggleMirror(ctx context.Context, id uint) (*domain.Mirror, error) {
	m, err := repo.ToggleMirror(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMirrorNotFound
		}
		return nil, fmt.Errorf("toggling mirror: %w", err)
	}
	s.Log.Info().Uint("mirror_id", id).Bool("is_active", m.IsActive).Msg("toggled mirror")
	return m, nil
}

// DeleteMirror hard-deletes a mirror. Returns false for an unknown id.
func (s *MirrorService) DeleteMirror(ctx context.Context, id uint) (bool, error) {
	ok, err := repo.DeleteMirror(ctx, s.DB, id)
	if err != nil {
		return false, fmt.Errorf("deleting mirror: %w", err)
	}
	if ok {
		s.Log.Info().Uint("mirror_id", id).Msg("deleted mirror")
	}
	return ok, nil
}

// ActiveMirrors returns all active mirrors in insertion order.
func (s *MirrorService) ActiveMirrors(ctx context.Context) ([]domain.Mirror, error) {
	return repo.ListActiveMirrors(ctx, s.DB)
}

// MirrorsForSource returns the active mirrors fed by one source chat.
func (s *MirrorService) MirrorsForSource(ctx context.Context, chatID int64) ([]domain.Mirror, error) {
	return repo.ListActiveMirrorsForSource(ctx, s.DB, chatID)
}
