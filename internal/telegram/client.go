// Package telegram is the transport layer: a long-polling Bot API client with
// a small worker pool. Workers normalize raw updates, route admin commands,
// and hand source-chat traffic to the dispatcher. All protocol knowledge
// stays in this package.
package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/config"
	"github.com/avolkov/tg-mirror/internal/services"
)

// Client consumes the update stream and drives the mirror engine.
type Client struct {
	Log           zerolog.Logger
	Token         string
	Workers       int
	UpdateTimeout int

	DB         *gorm.DB
	Dispatcher *services.Dispatcher
	Resolver   *services.Resolver
	Mirrors    *services.MirrorService
	Settings   *config.Settings

	bot *tgbotapi.BotAPI
	wg  sync.WaitGroup
}

// Start connects to the Bot API and launches the worker pool. It returns once
// the workers are running; use Wait to block until they drain after ctx is
// cancelled.
func (c *Client) Start(ctx context.Context) (err error) {
	if c.Workers <= 0 {
		return fmt.Errorf("workers number must be greater than 0")
	}

	c.bot, err = tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return fmt.Errorf("creating bot api: %w", err)
	}

	c.Log.Info().Str("username", c.bot.Self.UserName).Msg("bot api connected")

	updatesConf := tgbotapi.NewUpdate(0)
	updatesConf.Timeout = c.UpdateTimeout

	updates := c.bot.GetUpdatesChan(updatesConf)

	for i := 0; i < c.Workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.consume(ctx, updates)
		}()
	}

	return nil
}

// Wait blocks until every worker has exited.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) consume(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := c.handleUpdate(ctx, update); err != nil {
				c.Log.Error().Err(err).Int("tg_update_id", update.UpdateID).Msg("handling update")
			}
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	log := c.Log.With().Int("tg_update_id", update.UpdateID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic while handling update")
		}
	}()

	// Channel posts arrive in a separate slot and carry no sender.
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return nil
	}

	if msg.IsCommand() {
		if msg.From == nil || !c.Resolver.IsAdmin(msg.From.ID) {
			log.Debug().Int64("chat_id", msg.Chat.ID).Msg("ignoring command from non-admin")
			return nil
		}
		return c.handleCommand(ctx, msg)
	}

	in := Normalize(msg)

	switch {
	case c.Resolver.IsSourceChat(in.Chat.ID):
		if !c.Resolver.IsAllowedSender(in.Sender) {
			log.Debug().
				Int64("chat_id", in.Chat.ID).
				Int64("user_id", in.Sender.ID).
				Msg("sender not allowed, skipping")
			return nil
		}
		if _, err := c.Dispatcher.Dispatch(ctx, in); err != nil {
			return fmt.Errorf("dispatching message %d in chat %d: %w", in.TelegramID, in.Chat.ID, err)
		}
		return nil

	case c.Resolver.IsMirrorChat(in.Chat.ID):
		// Target-side traffic is observed but never dispatched.
		log.Info().
			Int64("chat_id", in.Chat.ID).
			Int64("telegram_id", in.TelegramID).
			Msg("message in mirror chat")
		return nil

	default:
		return nil
	}
}
