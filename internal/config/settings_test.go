package config

import (
	"sync"
	"testing"
)

func TestSettings_SeededFromConfig(t *testing.T) {
	s := NewSettings(MirrorConfig{RenderImages: true})
	if !s.RenderImages() {
		t.Fatal("expected render switch seeded on")
	}

	s = NewSettings(MirrorConfig{RenderImages: false})
	if s.RenderImages() {
		t.Fatal("expected render switch seeded off")
	}
}

func TestSettings_SetRenderImages(t *testing.T) {
	s := NewSettings(MirrorConfig{RenderImages: true})

	s.SetRenderImages(false)
	if s.RenderImages() {
		t.Fatal("expected switch off after set")
	}
	s.SetRenderImages(true)
	if !s.RenderImages() {
		t.Fatal("expected switch on after set")
	}
}

func TestSettings_ConcurrentReaders(t *testing.T) {
	s := NewSettings(MirrorConfig{RenderImages: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(flip bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if flip {
					s.SetRenderImages(j%2 == 0)
				} else {
					_ = s.RenderImages()
				}
			}
		}(i%4 == 0)
	}
	wg.Wait()
}
