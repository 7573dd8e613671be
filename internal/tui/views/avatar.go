package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/texcache"
	"github.com/rivo/tview"
)

// Avatar draws an image from the texture cache. Until the image is loaded,
// or when there is none, it draws the initial of the name on the accent
// color.
type Avatar struct {
	*tview.Box
	cache      *texcache.Cache
	cols, rows int

	key   texcache.Key
	path  string
	name  string
	color uint32
}

// NewAvatar creates an avatar of cols x rows cells. cache may be nil.
func NewAvatar(cache *texcache.Cache, cols, rows int) *Avatar {
	return &Avatar{Box: tview.NewBox(), cache: cache, cols: cols, rows: rows}
}

// Set binds the avatar to an entity.
func (a *Avatar) Set(key texcache.Key, path, name string, color uint32) {
	a.key, a.path, a.name, a.color = key, path, name, color
}

func (a *Avatar) Draw(screen tcell.Screen) {
	a.DrawForSubclass(screen, a)
	x, y, w, h := a.GetInnerRect()
	w, h = min(w, a.cols), min(h, a.rows)
	if w <= 0 || h <= 0 {
		return
	}

	if a.path != "" && a.cache != nil {
		tex, ok := a.cache.GetOrLoad(a.key, texcache.FileLoader(a.path, a.cols, a.rows))
		if ok && !tex.Empty() {
			tex.Draw(screen, x, y)
			return
		}
	}

	style := tcell.StyleDefault.Background(tcell.NewHexColor(int32(a.color & 0xffffff)))
	for row := range h {
		for col := range w {
			screen.SetContent(x+col, y+row, ' ', nil, style)
		}
	}
	screen.SetContent(x+w/2, y+h/2, initial(a.name), nil, style.Foreground(tcell.ColorWhite).Bold(true))
}
