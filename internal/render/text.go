package render

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/monitoring"
)

// Text element faces are cached per whole-pixel size.
const (
	minFontPx = 6
	maxFontPx = 96
)

var (
	fontOnce sync.Once
	fontData *opentype.Font
)

// faces hands out Go Regular faces by pixel size and falls back to the
// basic bitmap face when the font cannot be loaded.
type faces struct {
	mu    sync.Mutex
	cache map[int]font.Face
}

func (f *faces) get(px float64) font.Face {
	size := int(math.Round(px))
	if size < minFontPx {
		size = minFontPx
	}
	if size > maxFontPx {
		size = maxFontPx
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.cache[size]; ok {
		return face
	}
	fontOnce.Do(func() {
		fnt, err := opentype.Parse(goregular.TTF)
		if err != nil {
			monitoring.Logf("render: parse font: %v", err)
			return
		}
		fontData = fnt
	})
	if fontData == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		monitoring.Logf("render: font face %dpx: %v", size, err)
		return basicfont.Face7x13
	}
	if f.cache == nil {
		f.cache = map[int]font.Face{}
	}
	f.cache[size] = face
	return face
}

// drawString draws s with its baseline starting at p.
func drawString(dst *image.RGBA, face font.Face, p geom.Point, s string, col color.Color) {
	if s == "" || !p.IsFinite() {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(p.X * 64), Y: fixed.Int26_6(p.Y * 64)},
	}
	d.DrawString(s)
}

// drawLabel draws s with the small bitmap face, centred horizontally on p.
func drawLabel(dst *image.RGBA, p geom.Point, s string, col color.Color) {
	w := font.MeasureString(basicfont.Face7x13, s).Ceil()
	drawString(dst, basicfont.Face7x13, geom.Pt(p.X-float64(w)/2, p.Y), s, col)
}
