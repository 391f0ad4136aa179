package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/tg-mirror/internal/config"
)

// fakeConverter writes a shell script that copies its html input to the image
// output, standing in for wkhtmltoimage.
func fakeConverter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converter stub")
	}
	path := filepath.Join(t.TempDir(), "converter.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing converter stub: %v", err)
	}
	return path
}

func newTestRenderer(t *testing.T, converter string) *Renderer {
	t.Helper()
	r, err := New(zerolog.Nop(),
		config.RenderConfig{
			ConverterPath: converter,
			OutputDir:     t.TempDir(),
			Timeout:       5 * time.Second,
		},
		config.MirrorConfig{MaxImageWidth: 800, MaxImageHeight: 1200},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRender_ProducesArtifact(t *testing.T) {
	// Args: --width W --height H <html> <png>; the copy fakes a conversion.
	conv := fakeConverter(t, `cp "$5" "$6"`)
	r := newTestRenderer(t, conv)

	path, err := r.Render(context.Background(), sampleMessage(), true, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Fatalf("expected png artifact, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if !strings.Contains(string(data), "Alice Smith") {
		t.Fatal("artifact does not carry the rendered document")
	}

	// The intermediate html file is cleaned up.
	entries, err := os.ReadDir(r.OutputDir)
	if err != nil {
		t.Fatalf("reading output dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".html") {
			t.Fatalf("html intermediate left behind: %s", e.Name())
		}
	}
}

func TestRender_UniqueArtifactNames(t *testing.T) {
	conv := fakeConverter(t, `cp "$5" "$6"`)
	r := newTestRenderer(t, conv)

	first, err := r.Render(context.Background(), sampleMessage(), true, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := r.Render(context.Background(), sampleMessage(), true, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first == second {
		t.Fatalf("two renders of the same message must not collide: %q", first)
	}
}

func TestRender_ConverterFailure(t *testing.T) {
	conv := fakeConverter(t, `echo "conversion blew up" >&2; exit 3`)
	r := newTestRenderer(t, conv)

	_, err := r.Render(context.Background(), sampleMessage(), true, true)
	if err == nil {
		t.Fatal("expected converter failure to surface")
	}
	if !strings.Contains(err.Error(), "conversion blew up") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestRender_ConverterProducesNothing(t *testing.T) {
	conv := fakeConverter(t, `exit 0`)
	r := newTestRenderer(t, conv)

	_, err := r.Render(context.Background(), sampleMessage(), true, true)
	if err == nil {
		t.Fatal("expected missing artifact to surface as error")
	}
}

func TestCleanupOldRenders(t *testing.T) {
	r := newTestRenderer(t, "true")

	oldFile := filepath.Join(r.OutputDir, "old.png")
	newFile := filepath.Join(r.OutputDir, "new.png")
	for _, p := range []string{oldFile, newFile} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deleted, err := r.CleanupOldRenders(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupOldRenders: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Fatalf("recent artifact must survive: %v", err)
	}
}
