// Package services – delivery strategy
//
// One Deliver call handles one (message, mirror) pair: render-and-send when
// the mirror and the system-wide switch both ask for it, verbatim copy
// otherwise. A render failure degrades to copy; a send failure is final for
// this mirror and surfaces as OutcomeFailed. Deliver never panics past the
// per-mirror boundary; the dispatcher decides what a failed outcome means for
// the pass as a whole.
package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/avolkov/tg-mirror/internal/config"
	"github.com/avolkov/tg-mirror/internal/domain"
)

// Outcome is the result of delivering one message to one mirror target.
type Outcome string

const (
	// OutcomeImage means the message was rendered and sent as a photo.
	OutcomeImage Outcome = "delivered-as-image"
	// OutcomeCopy means the original message was copied verbatim.
	OutcomeCopy Outcome = "delivered-as-copy"
	// OutcomeSkipped means the mirror was not eligible (inactive).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the send to this target did not succeed.
	OutcomeFailed Outcome = "failed"
)

// Renderer converts a persisted message into a styled bitmap and returns the
// artifact path.
type Renderer interface {
	Render(ctx context.Context, msg *domain.Message, includeMedia, includeReplies bool) (string, error)
}

// Sender is the subset of chat-protocol primitives the delivery strategy
// needs. topicID, when set, addresses a sub-thread of the target chat.
type Sender interface {
	CopyMessage(ctx context.Context, targetChatID, sourceChatID, messageID int64, topicID *int64) error
	SendPhoto(ctx context.Context, chatID int64, path string, topicID *int64) error
}

// Deliverer executes the per-mirror transformation policy.
type Deliverer struct {
	Log      zerolog.Logger
	Renderer Renderer
	Sender   Sender
	Settings *config.Settings
}

// Deliver mirrors msg to the mirror's target. The returned path is non-nil
// when an image artifact was produced during this call, whether or not the
// subsequent send succeeded; the dispatcher records it on the message.
func (d *Deliverer) Deliver(ctx context.Context, msg *domain.Message, mirror *domain.Mirror) (Outcome, *string) {
	if !mirror.IsActive {
		return OutcomeSkipped, nil
	}

	log := d.Log.With().
		Uint("mirror_id", mirror.ID).
		Int64("target_chat_id", mirror.TargetChatID).
		Uint("message_id", msg.ID).
		Logger()

	var rendered *string
	if mirror.RenderAsImage && d.Settings.RenderImages() {
		path, err := d.Renderer.Render(ctx, msg, mirror.IncludeMedia, mirror.IncludeReplies)
		if err != nil {
			// Degrade to a verbatim copy rather than failing the mirror.
			log.Warn().Err(err).Msg("render failed, falling back to copy")
		} else {
			rendered = &path
			if err := d.Sender.SendPhoto(ctx, mirror.TargetChatID, path, mirror.TargetTopicID); err != nil {
				log.Error().Err(err).Msg("sending rendered image failed")
				return OutcomeFailed, rendered
			}
			log.Info().Str("image", path).Msg("mirrored as image")
			return OutcomeImage, rendered
		}
	}

	if err := d.Sender.CopyMessage(ctx, mirror.TargetChatID, msg.ChatID, msg.TelegramID, mirror.TargetTopicID); err != nil {
		log.Error().Err(err).Msg("copying message failed")
		return OutcomeFailed, rendered
	}
	log.Info().Msg("mirrored as copy")
	return OutcomeCopy, rendered
}
