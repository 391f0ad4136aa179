// Package services – Dispatcher
//
// The dispatcher owns the end-to-end handling of one inbound message: resolve
// the referenced user and chat, persist the message, fan delivery out to every
// active mirror of the source chat, and record the mirrored state, all inside
// a single transaction, so a failed pass leaves no trace and a redelivered
// event can be processed again.
//
// Per-mirror failures are isolated: one target failing never aborts its
// siblings and never rolls back the persisted message. The mirrored-state
// transition happens exactly once per pass, regardless of fan-out size.
//
// Observability: each pass runs under an OpenTelemetry span and feeds the
// dispatch Prometheus collectors.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/domain"
	"github.com/avolkov/tg-mirror/internal/observability"
	"github.com/avolkov/tg-mirror/internal/repo"
)

// Dispatcher coordinates one dispatch pass per inbound message.
type Dispatcher struct {
	DB        *gorm.DB
	Log       zerolog.Logger
	Resolver  *Resolver
	Deliverer *Deliverer
}

// Dispatch processes one normalized inbound message. It returns the persisted
// message on success (mirrored or not) and (nil, error) when no valid message
// record could be established; the caller treats the latter as a skipped
// event and relies on upstream redelivery.
func (d *Dispatcher) Dispatch(ctx context.Context, in Inbound) (*domain.Message, error) {
	tr := otel.Tracer("services/Dispatcher")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.Int64("chat.id", in.Chat.ID),
			attribute.Int64("message.telegram_id", in.TelegramID),
		),
	)
	defer span.End()

	start := time.Now()

	var msg *domain.Message
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, userCreated, err := d.Resolver.ResolveUser(ctx, tx, in.Sender)
		if err != nil {
			return fmt.Errorf("resolving user: %w", err)
		}
		if userCreated {
			d.Log.Info().Int64("user_id", user.ID).
				Bool("is_admin", user.IsAdmin).
				Bool("is_allowed", user.IsAllowed).
				Msg("created user")
		}

		chat, chatCreated, err := d.Resolver.ResolveChat(ctx, tx, in.Chat)
		if err != nil {
			return fmt.Errorf("resolving chat: %w", err)
		}
		if chatCreated {
			d.Log.Info().Int64("chat_id", chat.ID).
				Bool("is_source", chat.IsSource).
				Bool("is_target", chat.IsTarget).
				Msg("created chat")
		}

		msg, err = repo.CreateMessage(ctx, tx, createParams(in, user))
		if err != nil {
			return fmt.Errorf("persisting message: %w", err)
		}
		// The freshly inserted row carries foreign keys only; delivery needs
		// the sender and chat for the rendered header.
		msg.User = user
		msg.Chat = *chat

		mirrors, err := repo.ListActiveMirrorsForSource(ctx, tx, chat.ID)
		if err != nil {
			return fmt.Errorf("loading mirrors: %w", err)
		}
		if len(mirrors) == 0 {
			return nil
		}

		rendered := d.fanOut(ctx, msg, mirrors)

		msg, err = repo.MarkMessageMirrored(ctx, tx, msg.ID, rendered)
		if err != nil {
			return fmt.Errorf("marking message mirrored: %w", err)
		}
		return nil
	})
	if err != nil {
		observability.DispatchPasses.WithLabelValues("failed").Inc()
		d.Log.Error().Err(err).
			Int64("chat_id", in.Chat.ID).
			Int64("telegram_id", in.TelegramID).
			Msg("dispatch pass failed")
		return nil, err
	}

	observability.DispatchPasses.WithLabelValues("ok").Inc()
	observability.DispatchDuration.Observe(time.Since(start).Seconds())
	return msg, nil
}

// fanOut attempts delivery to every mirror in store order and returns the
// rendered-artifact path of the last mirror that produced one (last writer
// wins). Each mirror is attempted regardless of how its siblings fared.
func (d *Dispatcher) fanOut(ctx context.Context, msg *domain.Message, mirrors []domain.Mirror) *string {
	var rendered *string
	for i := range mirrors {
		outcome, path := d.deliverOne(ctx, msg, &mirrors[i])
		if path != nil {
			rendered = path
		}
		observability.Deliveries.WithLabelValues(string(outcome)).Inc()
	}
	return rendered
}

// deliverOne guards a single delivery attempt. A panicking collaborator is
// contained here so the remaining mirrors still run.
func (d *Dispatcher) deliverOne(ctx context.Context, msg *domain.Message, mirror *domain.Mirror) (outcome Outcome, rendered *string) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.Error().
				Uint("mirror_id", mirror.ID).
				Int64("target_chat_id", mirror.TargetChatID).
				Interface("panic", r).
				Msg("delivery panicked")
			outcome = OutcomeFailed
		}
	}()
	return d.Deliverer.Deliver(ctx, msg, mirror)
}

func createParams(in Inbound, user *domain.User) repo.CreateMessageParams {
	p := repo.CreateMessageParams{
		TelegramID:       in.TelegramID,
		ChatID:           in.Chat.ID,
		Text:             in.Text,
		ReplyToMessageID: in.ReplyToMessageID,
		MessageThreadID:  in.MessageThreadID,
	}
	if user != nil {
		id := user.ID
		p.UserID = &id
	}
	if in.Media != nil {
		mt := string(in.Media.Type)
		fid := in.Media.FileID
		fuid := in.Media.FileUniqueID
		p.MediaType = &mt
		p.MediaFileID = &fid
		p.MediaFileUniqueID = &fuid
	}
	if in.Forward != nil {
		p.IsForwarded = true
		p.ForwardFromChatID = in.Forward.FromChatID
		p.ForwardFromUserID = in.Forward.FromUserID
		p.ForwardDate = in.Forward.Date
	}
	return p
}
