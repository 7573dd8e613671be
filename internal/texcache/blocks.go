package texcache

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gdamore/tcell/v2"
)

// Cell is one terminal cell of a texture: an upper half block with Top as
// foreground and Bottom as background.
type Cell struct {
	Top    tcell.Color
	Bottom tcell.Color
}

// Texture is an image rendered to terminal cells, one cell per two pixel rows.
type Texture struct {
	Width  int
	Height int
	Cells  [][]Cell
}

// Empty reports whether the texture has no cells.
func (t Texture) Empty() bool { return t.Width == 0 || t.Height == 0 }

// Draw paints the texture at x, y.
func (t Texture) Draw(screen tcell.Screen, x, y int) {
	for row, cells := range t.Cells {
		for col, c := range cells {
			style := tcell.StyleDefault.Foreground(c.Top).Background(c.Bottom)
			screen.SetContent(x+col, y+row, '▀', nil, style)
		}
	}
}

// RenderBlocks scales img to fit in cols x rows cells, keeping its aspect
// ratio, using nearest-neighbour sampling.
func RenderBlocks(img image.Image, cols, rows int) Texture {
	b := img.Bounds()
	if b.Empty() || cols <= 0 || rows <= 0 {
		return Texture{}
	}

	// Each cell covers one pixel column and two pixel rows.
	w, h := b.Dx(), b.Dy()
	pw, ph := cols, rows*2
	if w*ph > h*pw {
		ph = max(1, h*pw/w)
	} else {
		pw = max(1, w*ph/h)
	}

	sample := func(px, py int) tcell.Color {
		if py >= ph {
			return tcell.ColorDefault
		}
		sx := b.Min.X + px*w/pw
		sy := b.Min.Y + py*h/ph
		r, g, bl, a := img.At(sx, sy).RGBA()
		if a == 0 {
			return tcell.ColorDefault
		}
		return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(bl>>8))
	}

	tex := Texture{Width: pw, Height: (ph + 1) / 2}
	tex.Cells = make([][]Cell, tex.Height)
	for row := range tex.Cells {
		tex.Cells[row] = make([]Cell, pw)
		for col := range pw {
			tex.Cells[row][col] = Cell{Top: sample(col, row*2), Bottom: sample(col, row*2+1)}
		}
	}
	return tex
}

// FileLoader decodes a PNG, JPEG or GIF file and renders it.
func FileLoader(path string, cols, rows int) Loader {
	return func(ctx context.Context) (Texture, error) {
		if err := ctx.Err(); err != nil {
			return Texture{}, err
		}
		f, err := os.Open(path)
		if err != nil {
			return Texture{}, err
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return Texture{}, fmt.Errorf("decode %s: %w", path, err)
		}
		return RenderBlocks(img, cols, rows), nil
	}
}
