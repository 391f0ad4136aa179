package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avolkov/tg-mirror/internal/repo"
	"github.com/avolkov/tg-mirror/internal/services"
)

const helpText = `Mirror engine commands:
/help - this message
/status - engine status and counters
/mirrors - list active mirrors
/add_mirror <source_chat_id> <target_chat_id> [topic_id] - create a mirror
/toggle_mirror <mirror_id> - flip a mirror active state
/remove_mirror <mirror_id> - delete a mirror
/render <on|off> - global render-as-image switch
/chats - list known source and target chats
/copy_message <source_chat_id> <message_id> [message_id ...] <target_chat_id> - copy messages by id`

// handleCommand dispatches one admin command. The caller has already verified
// the sender is an admin.
func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	log := c.Log.With().
		Str("command", msg.Command()).
		Int64("chat_id", msg.Chat.ID).
		Int64("user_id", msg.From.ID).
		Logger()
	log.Info().Str("args", msg.CommandArguments()).Msg("admin command")

	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "help", "start":
		return c.reply(ctx, msg, helpText)
	case "status":
		return c.cmdStatus(ctx, msg)
	case "mirrors":
		return c.cmdMirrors(ctx, msg)
	case "add_mirror":
		return c.cmdAddMirror(ctx, msg, args)
	case "toggle_mirror":
		return c.cmdToggleMirror(ctx, msg, args)
	case "remove_mirror":
		return c.cmdRemoveMirror(ctx, msg, args)
	case "render":
		return c.cmdRender(ctx, msg, args)
	case "chats":
		return c.cmdChats(ctx, msg)
	case "copy_message":
		return c.cmdCopyMessage(ctx, msg, args)
	default:
		return c.reply(ctx, msg, "Unknown command. Try /help.")
	}
}

func (c *Client) cmdStatus(ctx context.Context, msg *tgbotapi.Message) error {
	mirrors, err := c.Mirrors.ActiveMirrors(ctx)
	if err != nil {
		return c.reply(ctx, msg, "Failed to load mirrors: "+err.Error())
	}
	sources, err := repo.ListSourceChats(ctx, c.DB.WithContext(ctx))
	if err != nil {
		return c.reply(ctx, msg, "Failed to load chats: "+err.Error())
	}

	var total int64
	for _, ch := range sources {
		n, err := repo.CountMessages(ctx, c.DB.WithContext(ctx), ch.ID)
		if err != nil {
			return c.reply(ctx, msg, "Failed to count messages: "+err.Error())
		}
		total += n
	}

	render := "off"
	if c.Settings.RenderImages() {
		render = "on"
	}
	return c.reply(ctx, msg, fmt.Sprintf(
		"Active mirrors: %d\nSource chats: %d\nStored messages: %d\nRender as image: %s",
		len(mirrors), len(sources), total, render,
	))
}

func (c *Client) cmdMirrors(ctx context.Context, msg *tgbotapi.Message) error {
	mirrors, err := c.Mirrors.ActiveMirrors(ctx)
	if err != nil {
		return c.reply(ctx, msg, "Failed to load mirrors: "+err.Error())
	}
	if len(mirrors) == 0 {
		return c.reply(ctx, msg, "No active mirrors.")
	}

	var b strings.Builder
	b.WriteString("Active mirrors:\n")
	for _, m := range mirrors {
		fmt.Fprintf(&b, "#%d %d -> %d", m.ID, m.SourceChatID, m.TargetChatID)
		if m.TargetTopicID != nil {
			fmt.Fprintf(&b, " (topic %d)", *m.TargetTopicID)
		}
		if m.RenderAsImage {
			b.WriteString(" [render]")
		}
		b.WriteByte('\n')
	}
	return c.reply(ctx, msg, b.String())
}

func (c *Client) cmdAddMirror(ctx context.Context, msg *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		return c.reply(ctx, msg, "Usage: /add_mirror <source_chat_id> <target_chat_id> [topic_id]")
	}
	sourceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.reply(ctx, msg, "Bad source chat id: "+args[0])
	}
	targetID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.reply(ctx, msg, "Bad target chat id: "+args[1])
	}
	var topicID *int64
	if len(args) > 2 {
		t, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return c.reply(ctx, msg, "Bad topic id: "+args[2])
		}
		topicID = &t
	}

	// Reachability check before touching configuration: the account must be
	// able to see the target to ever deliver into it.
	if _, err := c.GetChat(ctx, targetID); err != nil {
		return c.reply(ctx, msg, "Cannot access the target chat. Add this account to it first.")
	}

	mirror, err := c.Mirrors.CreateMirror(ctx, sourceID, targetID, topicID, true, true, true)
	switch {
	case errors.Is(err, services.ErrSourceChatUnknown):
		return c.reply(ctx, msg, "Source chat is not known yet. The engine must observe it first.")
	case errors.Is(err, services.ErrTargetChatUnknown):
		return c.reply(ctx, msg, "Target chat is not known yet. The engine must observe it first.")
	case err != nil:
		return c.reply(ctx, msg, "Failed to create mirror: "+err.Error())
	}
	return c.reply(ctx, msg, fmt.Sprintf("Created mirror #%d: %d -> %d", mirror.ID, mirror.SourceChatID, mirror.TargetChatID))
}

func (c *Client) cmdToggleMirror(ctx context.Context, msg *tgbotapi.Message, args []string) error {
	id, ok := parseMirrorID(args)
	if !ok {
		return c.reply(ctx, msg, "Usage: /toggle_mirror <mirror_id>")
	}
	mirror, err := c.Mirrors.ToggleMirror(ctx, id)
	switch {
	case errors.Is(err, services.ErrMirrorNotFound):
		return c.reply(ctx, msg, fmt.Sprintf("Mirror #%d does not exist.", id))
	case err != nil:
		return c.reply(ctx, msg, "Failed to toggle mirror: "+err.Error())
	}
	state := "disabled"
	if mirror.IsActive {
		state = "enabled"
	}
	return c.reply(ctx, msg, fmt.Sprintf("Mirror #%d is now %s.", mirror.ID, state))
}

func (c *Client) cmdRemoveMirror(ctx context.Context, msg *tgbotapi.Message, args []string) error {
	id, ok := parseMirrorID(args)
	if !ok {
		return c.reply(ctx, msg, "Usage: /remove_mirror <mirror_id>")
	}
	deleted, err := c.Mirrors.DeleteMirror(ctx, id)
	if err != nil {
		return c.reply(ctx, msg, "Failed to delete mirror: "+err.Error())
	}
	if !deleted {
		return c.reply(ctx, msg, fmt.Sprintf("Mirror #%d does not exist.", id))
	}
	return c.reply(ctx, msg, fmt.Sprintf("Deleted mirror #%d.", id))
}

func (c *Client) cmdRender(ctx context.Context, msg *tgbotapi.Message, args []string) error {
	if len(args) != 1 {
		return c.reply(ctx, msg, "Usage: /render <on|off>")
	}
	switch strings.ToLower(args[0]) {
	case "on":
		c.Settings.SetRenderImages(true)
		return c.reply(ctx, msg, "Render as image: on")
	case "off":
		c.Settings.SetRenderImages(false)
		return c.reply(ctx, msg, "Render as image: off")
	default:
		return c.reply(ctx, msg, "Usage: /render <on|off>")
	}
}

func (c *Client) cmdChats(ctx context.Context, msg *tgbotapi.Message) error {
	db := c.DB.WithContext(ctx)
	sources, err := repo.ListSourceChats(ctx, db)
	if err != nil {
		return c.reply(ctx, msg, "Failed to load chats: "+err.Error())
	}
	targets, err := repo.ListTargetChats(ctx, db)
	if err != nil {
		return c.reply(ctx, msg, "Failed to load chats: "+err.Error())
	}

	var b strings.Builder
	b.WriteString("Source chats:\n")
	if len(sources) == 0 {
		b.WriteString("  none\n")
	}
	for _, ch := range sources {
		fmt.Fprintf(&b, "  %d %s\n", ch.ID, chatLabel(ch.Title))
	}
	b.WriteString("Target chats:\n")
	if len(targets) == 0 {
		b.WriteString("  none\n")
	}
	for _, ch := range targets {
		fmt.Fprintf(&b, "  %d %s\n", ch.ID, chatLabel(ch.Title))
	}
	return c.reply(ctx, msg, b.String())
}

func (c *Client) reply(ctx context.Context, msg *tgbotapi.Message, text string) error {
	return c.SendText(ctx, msg.Chat.ID, text, nil)
}

func parseMirrorID(args []string) (uint, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func chatLabel(title *string) string {
	if title == nil {
		return "(untitled)"
	}
	return *title
}
