package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/repo"
	"github.com/avolkov/tg-mirror/internal/services"
)

// maxCopyBatch bounds one bulk copy request so a pasted wall of ids cannot
// queue an unbounded amount of API traffic.
const maxCopyBatch = 1000

// copyConcurrency is the number of in-flight sends during a bulk copy.
const copyConcurrency = 6

// statusEditInterval throttles progress edits of the status message.
const statusEditInterval = 3 * time.Second

func (c *Client) cmdCopyMessage(ctx context.Context, msg *tgbotapi.Message, args []string) error {
	req, err := parseCopyArgs(args)
	if err != nil {
		return c.reply(ctx, msg, err.Error())
	}
	if len(req.Skipped) > 0 {
		if err := c.reply(ctx, msg, "Skipping invalid message ids: "+strings.Join(req.Skipped, ", ")); err != nil {
			return err
		}
	}

	status := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Copying %d messages...", len(req.IDs)))
	sent, err := c.bot.Send(status)
	if err != nil {
		return fmt.Errorf("sending status message: %w", err)
	}

	cp := &copier{Log: c.Log, DB: c.DB, Transport: c}
	// The copy runs off the worker so large batches do not starve the pool.
	go cp.run(ctx, copyJob{
		SourceChatID: req.SourceChatID,
		TargetChatID: req.TargetChatID,
		IDs:          req.IDs,
		StatusChatID: msg.Chat.ID,
		StatusMsgID:  sent.MessageID,
	})
	return nil
}

type copyRequest struct {
	SourceChatID int64
	TargetChatID int64
	IDs          []int64
	Skipped      []string
}

// parseCopyArgs reads `<source_chat_id> <message_id> [message_id ...]
// <target_chat_id>`. Unparseable id tokens in the middle are collected in
// Skipped rather than failing the command; the error text is user-facing.
func parseCopyArgs(args []string) (*copyRequest, error) {
	if len(args) < 3 {
		return nil, errors.New("Usage: /copy_message <source_chat_id> <message_id> [message_id ...] <target_chat_id>")
	}
	sourceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, errors.New("Bad source chat id: " + args[0])
	}
	targetID, err := strconv.ParseInt(args[len(args)-1], 10, 64)
	if err != nil {
		return nil, errors.New("Bad target chat id: " + args[len(args)-1])
	}

	req := &copyRequest{SourceChatID: sourceID, TargetChatID: targetID}
	for _, a := range args[1 : len(args)-1] {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			req.Skipped = append(req.Skipped, a)
			continue
		}
		req.IDs = append(req.IDs, id)
	}
	if len(req.IDs) == 0 {
		return nil, errors.New("No valid message ids given.")
	}
	if len(req.IDs) > maxCopyBatch {
		return nil, fmt.Errorf("Too many messages: %d (max %d).", len(req.IDs), maxCopyBatch)
	}
	return req, nil
}

// copyTransport is the slice of the protocol client the bulk copier drives.
type copyTransport interface {
	CopyMessage(ctx context.Context, targetChatID, sourceChatID, messageID int64, topicID *int64) error
	SendText(ctx context.Context, chatID int64, text string, topicID *int64) error
	SendMedia(ctx context.Context, chatID int64, mediaType services.MediaType, path string, caption *string, topicID *int64) error
	DownloadFile(ctx context.Context, fileID, destPath string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
}

type copier struct {
	Log       zerolog.Logger
	DB        *gorm.DB
	Transport copyTransport
}

type copyJob struct {
	SourceChatID int64
	TargetChatID int64
	IDs          []int64
	StatusChatID int64
	StatusMsgID  int
}

// run copies every listed message id from the source to the target chat with
// bounded concurrency. Ids the API cannot copy directly are retried from the
// entity store: stored media is re-downloaded by file id and re-uploaded,
// stored text is re-posted. Progress is reported by editing the status
// message at a throttled rate; a failed id only bumps the failure counter.
func (cp *copier) run(ctx context.Context, job copyJob) {
	log := cp.Log.With().
		Int64("source_chat_id", job.SourceChatID).
		Int64("target_chat_id", job.TargetChatID).
		Int("message_count", len(job.IDs)).
		Logger()
	log.Info().Msg("bulk copy started")

	total := int64(len(job.IDs))
	var copied, failed atomic.Int64
	limiter := rate.NewLimiter(rate.Every(statusEditInterval), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)

	for _, id := range job.IDs {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := cp.copyOne(gctx, job.SourceChatID, job.TargetChatID, id); err != nil {
				failed.Add(1)
				log.Debug().Err(err).Int64("telegram_id", id).Msg("copy failed")
			} else {
				copied.Add(1)
			}
			if limiter.Allow() {
				cp.editStatus(gctx, job, copied.Load(), failed.Load(), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("bulk copy aborted")
	}

	final := fmt.Sprintf("Copy finished: %d copied, %d failed of %d.", copied.Load(), failed.Load(), total)
	if err := cp.Transport.EditText(ctx, job.StatusChatID, job.StatusMsgID, final); err != nil {
		log.Warn().Err(err).Msg("updating final copy status")
	}
	log.Info().Int64("copied", copied.Load()).Int64("failed", failed.Load()).Msg("bulk copy finished")
}

func (cp *copier) editStatus(ctx context.Context, job copyJob, copied, failed, total int64) {
	text := fmt.Sprintf("Copying: %d copied, %d failed of %d...", copied, failed, total)
	if err := cp.Transport.EditText(ctx, job.StatusChatID, job.StatusMsgID, text); err != nil {
		cp.Log.Debug().Err(err).Msg("updating copy status")
	}
}

// copyOne attempts a direct API copy and falls back to the entity store when
// the API refuses (deleted, too old, or otherwise uncopyable).
func (cp *copier) copyOne(ctx context.Context, sourceChatID, targetChatID, telegramID int64) error {
	copyErr := cp.Transport.CopyMessage(ctx, targetChatID, sourceChatID, telegramID, nil)
	if copyErr == nil {
		return nil
	}

	stored, err := repo.GetMessageByTelegramID(ctx, cp.DB.WithContext(ctx), telegramID, sourceChatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return copyErr
		}
		return fmt.Errorf("loading stored message: %w", err)
	}

	if stored.MediaFileID != nil && stored.MediaType != nil {
		return cp.resendStoredMedia(ctx, targetChatID, *stored.MediaFileID, services.MediaType(*stored.MediaType), stored.Text)
	}
	if stored.Text != nil {
		return cp.Transport.SendText(ctx, targetChatID, *stored.Text, nil)
	}
	return copyErr
}

func (cp *copier) resendStoredMedia(ctx context.Context, targetChatID int64, fileID string, mediaType services.MediaType, caption *string) error {
	dir, err := os.MkdirTemp("", "tg-mirror-copy-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "media")
	if err := cp.Transport.DownloadFile(ctx, fileID, path); err != nil {
		return err
	}
	return cp.Transport.SendMedia(ctx, targetChatID, mediaType, path, caption, nil)
}
