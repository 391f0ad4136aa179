// Package services – Resolver
//
// The resolver idempotently materializes the User and Chat records referenced
// by a normalized message. Classification (admin/allowed for users,
// source/target for chats) is a snapshot taken from the configured identity
// lists at creation time only: changing the lists later never re-classifies
// an existing record. Chat profile fields, by contrast, are refreshed on
// every sighting.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/config"
	"github.com/avolkov/tg-mirror/internal/domain"
	"github.com/avolkov/tg-mirror/internal/repo"
)

// Resolver materializes users and chats against the id lists of the static
// configuration. It holds no database handle of its own: callers pass the
// transaction the current dispatch pass runs in.
type Resolver struct {
	adminIDs   map[int64]struct{}
	allowedIDs map[int64]struct{}
	sourceIDs  map[int64]struct{}
	targetIDs  map[int64]struct{}
}

// NewResolver builds a resolver from the configured identity lists.
func NewResolver(cfg config.MirrorConfig) *Resolver {
	return &Resolver{
		adminIDs:   toSet(cfg.AdminUserIDs),
		allowedIDs: toSet(cfg.AllowedUserIDs),
		sourceIDs:  toSet(cfg.SourceChatIDs),
		targetIDs:  toSet(cfg.TargetChatIDs),
	}
}

// ResolveUser looks up the sender and creates it on first sighting,
// classifying admin/allowed from configuration. Admins are implicitly
// allowed. The returned bool reports whether the record was created by this
// call. A nil sender (channel post) resolves to (nil, false, nil).
// Existing users are returned as stored, without mutation.
func (r *Resolver) ResolveUser(ctx context.Context, tx *gorm.DB, sender *InboundUser) (*domain.User, bool, error) {
	if sender == nil {
		return nil, false, nil
	}

	u, err := repo.GetUser(ctx, tx, sender.ID)
	if err == nil {
		return u, false, nil
	}
	if err != repo.ErrNotFound {
		return nil, false, err
	}

	_, isAdmin := r.adminIDs[sender.ID]
	_, isAllowed := r.allowedIDs[sender.ID]
	isAllowed = isAdmin || isAllowed

	u, err = repo.CreateUser(ctx, tx, sender.ID, sender.Username, sender.FirstName, sender.LastName, isAdmin, isAllowed)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// ResolveChat looks up the chat and creates it on first sighting, classifying
// source/target from configuration. On subsequent sightings the profile
// fields (title, username, description) are refreshed unconditionally; the
// classification flags are left as created. The returned bool reports
// whether the record was created by this call.
func (r *Resolver) ResolveChat(ctx context.Context, tx *gorm.DB, chat InboundChat) (*domain.Chat, bool, error) {
	c, err := repo.GetChat(ctx, tx, chat.ID)
	if err == nil {
		c, err = repo.UpdateChatProfile(ctx, tx, chat.ID, chat.Title, chat.Username, chat.Description)
		return c, false, err
	}
	if err != repo.ErrNotFound {
		return nil, false, err
	}

	_, isSource := r.sourceIDs[chat.ID]
	_, isTarget := r.targetIDs[chat.ID]

	c, err = repo.CreateChat(ctx, tx, chat.ID, chat.Title, chat.Username, chat.Type, chat.Description, isSource, isTarget)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// IsAllowedSender reports whether a sender identity may trigger mirroring.
// Channel posts (nil sender) are eligible; ordinary senders must appear in
// the configured admin or allowed lists.
func (r *Resolver) IsAllowedSender(sender *InboundUser) bool {
	if sender == nil {
		return true
	}
	if _, ok := r.adminIDs[sender.ID]; ok {
		return true
	}
	_, ok := r.allowedIDs[sender.ID]
	return ok
}

// IsAdmin reports whether the user id is in the configured admin list.
func (r *Resolver) IsAdmin(userID int64) bool {
	_, ok := r.adminIDs[userID]
	return ok
}

// IsSourceChat reports whether the chat id is configured as a mirror source.
func (r *Resolver) IsSourceChat(chatID int64) bool {
	_, ok := r.sourceIDs[chatID]
	return ok
}

// IsMirrorChat reports whether the chat id participates in mirroring at all,
// as a source or as a target.
func (r *Resolver) IsMirrorChat(chatID int64) bool {
	if _, ok := r.sourceIDs[chatID]; ok {
		return true
	}
	_, ok := r.targetIDs[chatID]
	return ok
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
