// Package render converts persisted messages into styled bitmap artifacts.
// It generates a self-contained HTML document for a message and pipes it
// through an external HTML-to-image converter (wkhtmltoimage by default).
// The converter binary, the artifact directory, and the image dimension
// bounds all come from configuration.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/tg-mirror/internal/config"
	"github.com/avolkov/tg-mirror/internal/domain"
)

// Renderer produces image artifacts from messages.
type Renderer struct {
	Log           zerolog.Logger
	ConverterPath string
	OutputDir     string
	MaxWidth      int
	MaxHeight     int
	Timeout       time.Duration
}

// New builds a Renderer from configuration and ensures the artifact
// directory exists.
func New(log zerolog.Logger, rc config.RenderConfig, mc config.MirrorConfig) (*Renderer, error) {
	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating render output dir: %w", err)
	}
	return &Renderer{
		Log:           log,
		ConverterPath: rc.ConverterPath,
		OutputDir:     rc.OutputDir,
		MaxWidth:      mc.MaxImageWidth,
		MaxHeight:     mc.MaxImageHeight,
		Timeout:       rc.Timeout,
	}, nil
}

// Render generates the HTML document for msg, converts it to a PNG under the
// output directory, and returns the artifact path. The HTML file is removed
// after conversion; the image is kept for the caller to send and reference.
func (r *Renderer) Render(ctx context.Context, msg *domain.Message, includeMedia, includeReplies bool) (string, error) {
	doc, err := MessageHTML(msg, includeMedia, includeReplies)
	if err != nil {
		return "", fmt.Errorf("generating html: %w", err)
	}

	base := fmt.Sprintf("message_%d_%d_%s", msg.ChatID, msg.TelegramID, uuid.NewString()[:8])
	htmlPath := filepath.Join(r.OutputDir, base+".html")
	imagePath := filepath.Join(r.OutputDir, base+".png")

	if err := os.WriteFile(htmlPath, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("writing html: %w", err)
	}
	defer os.Remove(htmlPath)

	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := []string{"--width", strconv.Itoa(r.MaxWidth)}
	if r.MaxHeight > 0 {
		args = append(args, "--height", strconv.Itoa(r.MaxHeight))
	}
	args = append(args, htmlPath, imagePath)

	cmd := exec.CommandContext(cctx, r.ConverterPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("converter: %w (%s)", err, stderr.String())
	}

	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("converter produced no image: %w", err)
	}

	r.Log.Debug().Uint("message_id", msg.ID).Str("image", imagePath).Msg("rendered message")
	return imagePath, nil
}

// CleanupOldRenders deletes artifacts older than the given age and returns
// how many files were removed.
func (r *Renderer) CleanupOldRenders(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(r.OutputDir)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(r.OutputDir, e.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
