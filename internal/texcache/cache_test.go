package texcache

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func solid(w, h int) Texture {
	return Texture{Width: w, Height: h}
}

func TestGetOrLoadCachesResult(t *testing.T) {
	var repaints atomic.Int32
	c := New(Options{Workers: 2, Repaint: func() { repaints.Add(1) }})
	defer c.Close()

	key := Key{Account: 1, Kind: KindContact, ID: 10}
	var loads atomic.Int32
	loader := func(context.Context) (Texture, error) {
		loads.Add(1)
		return solid(3, 2), nil
	}

	if _, ok := c.GetOrLoad(key, loader); ok {
		t.Fatal("first GetOrLoad hit an empty cache")
	}
	waitFor(t, "texture", func() bool { _, ok := c.Get(key); return ok })

	tex, ok := c.GetOrLoad(key, loader)
	if !ok || tex.Width != 3 || tex.Height != 2 {
		t.Errorf("GetOrLoad = %+v, %v", tex, ok)
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d, want 1", loads.Load())
	}
	waitFor(t, "repaint", func() bool { return repaints.Load() == 1 })
}

func TestKeysAreDistinctPerEntity(t *testing.T) {
	c := New(Options{Workers: 1})
	defer c.Close()

	keys := []Key{
		{Account: 1, Kind: KindContact, ID: 10},
		{Account: 2, Kind: KindContact, ID: 10},
		{Account: 1, Kind: KindChat, ID: 10},
		{Account: 1, Kind: KindMessage, ID: 10},
	}
	for i, k := range keys {
		c.GetOrLoad(k, func(context.Context) (Texture, error) { return solid(i+1, 1), nil })
	}
	waitFor(t, "all textures", func() bool { return c.Len() == len(keys) })
	for i, k := range keys {
		if tex, _ := c.Get(k); tex.Width != i+1 {
			t.Errorf("%s width = %d, want %d", k, tex.Width, i+1)
		}
	}
}

func TestInflightLoadsAreDeduplicated(t *testing.T) {
	c := New(Options{Workers: 4})
	defer c.Close()

	release := make(chan struct{})
	var loads atomic.Int32
	loader := func(context.Context) (Texture, error) {
		loads.Add(1)
		<-release
		return solid(1, 1), nil
	}
	key := Key{Account: 1, Kind: KindAccount, ID: 1}
	for range 10 {
		c.GetOrLoad(key, loader)
	}
	close(release)
	waitFor(t, "texture", func() bool { _, ok := c.Get(key); return ok })
	if loads.Load() != 1 {
		t.Errorf("loads = %d, want 1", loads.Load())
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	var repaints atomic.Int32
	c := New(Options{Workers: 1, Repaint: func() { repaints.Add(1) }})
	defer c.Close()

	key := Key{Account: 1, Kind: KindMessage, ID: 5}
	var attempts atomic.Int32
	loader := func(context.Context) (Texture, error) {
		if attempts.Add(1) == 1 {
			return Texture{}, errors.New("corrupt image")
		}
		return solid(2, 2), nil
	}

	c.GetOrLoad(key, loader)
	waitFor(t, "first attempt", func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		_, pending := c.inflight[key]
		return attempts.Load() == 1 && !pending
	})
	if _, ok := c.Get(key); ok {
		t.Fatal("failed load was cached")
	}
	if repaints.Load() != 0 {
		t.Error("repaint after failed load")
	}

	c.GetOrLoad(key, loader)
	waitFor(t, "retry", func() bool { _, ok := c.Get(key); return ok })
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestCloseStopsWorkers(t *testing.T) {
	c := New(Options{Workers: 2})
	c.Close()
	if _, ok := c.GetOrLoad(Key{ID: 1}, func(context.Context) (Texture, error) { return solid(1, 1), nil }); ok {
		t.Error("hit after close")
	}
	time.Sleep(20 * time.Millisecond)
	if c.Len() != 0 {
		t.Error("load ran after Close")
	}
}

func halves(w, h int, top, bottom color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := top
			if y >= h/2 {
				c = bottom
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRenderBlocks(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	tex := RenderBlocks(halves(4, 4, red, blue), 4, 2)

	if tex.Width != 4 || tex.Height != 2 {
		t.Fatalf("size = %dx%d, want 4x2", tex.Width, tex.Height)
	}
	wantRed, wantBlue := tcell.NewRGBColor(255, 0, 0), tcell.NewRGBColor(0, 0, 255)
	if c := tex.Cells[0][0]; c.Top != wantRed || c.Bottom != wantRed {
		t.Errorf("top row = %+v", c)
	}
	if c := tex.Cells[1][3]; c.Top != wantBlue || c.Bottom != wantBlue {
		t.Errorf("bottom row = %+v", c)
	}
}

func TestRenderBlocksKeepsAspect(t *testing.T) {
	wide := image.NewRGBA(image.Rect(0, 0, 8, 2))
	tex := RenderBlocks(wide, 4, 4)
	if tex.Width != 4 || tex.Height != 1 {
		t.Errorf("size = %dx%d, want 4x1", tex.Width, tex.Height)
	}
	if !RenderBlocks(wide, 0, 4).Empty() {
		t.Error("zero columns rendered something")
	}
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, halves(2, 2, color.White, color.Black)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tex, err := FileLoader(path, 2, 1)(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 2 || tex.Height != 1 {
		t.Errorf("size = %dx%d", tex.Width, tex.Height)
	}

	if _, err := FileLoader(filepath.Join(t.TempDir(), "missing.png"), 2, 1)(context.Background()); err == nil {
		t.Error("missing file loaded")
	}
}
