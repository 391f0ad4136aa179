package config

import "sync"

// Settings holds the runtime-mutable subset of configuration. The
// administrative layer is the single writer; the dispatch path reads a
// consistent snapshot at the start of each pass, so a toggle issued while a
// pass is in flight never changes a decision already taken.
type Settings struct {
	mu           sync.RWMutex
	renderImages bool
}

// NewSettings seeds the runtime settings from the loaded configuration.
func NewSettings(cfg MirrorConfig) *Settings {
	return &Settings{renderImages: cfg.RenderImages}
}

// RenderImages reports whether the system-wide render switch is on.
func (s *Settings) RenderImages() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderImages
}

// SetRenderImages flips the system-wide render switch.
func (s *Settings) SetRenderImages(on bool) {
	s.mu.Lock()
	s.renderImages = on
	s.mu.Unlock()
}
