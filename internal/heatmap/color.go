package heatmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultAlpha is the overlay opacity used when none is configured.
const DefaultAlpha = 160

// ErrInvalidRamp is returned for ramps with fewer than two stops or
// unparseable colours.
var ErrInvalidRamp = errors.New("invalid color ramp")

// Stop is one colour stop as configured. Position is optional; stops without
// one are spaced evenly across [0,1] by index.
type Stop struct {
	Position *float64 `json:"position,omitempty"`
	Color    string   `json:"color"`
}

type rampStop struct {
	pos float64
	c   color.NRGBA
}

// Ramp maps t in [0,1] to a colour by linear interpolation between stops.
type Ramp struct {
	stops []rampStop
}

// DefaultRamp is blue, cyan, green, yellow, red at even spacing.
func DefaultRamp() Ramp {
	return Ramp{stops: []rampStop{
		{0, color.NRGBA{0, 0, 255, 255}},
		{0.25, color.NRGBA{0, 255, 255, 255}},
		{0.5, color.NRGBA{0, 255, 0, 255}},
		{0.75, color.NRGBA{255, 255, 0, 255}},
		{1, color.NRGBA{255, 0, 0, 255}},
	}}
}

// NewRamp builds a ramp from configured stops. Positions are clamped to
// [0,1] and the stops sorted by position.
func NewRamp(stops []Stop) (Ramp, error) {
	if len(stops) < 2 {
		return Ramp{}, fmt.Errorf("%w: need at least 2 stops, got %d", ErrInvalidRamp, len(stops))
	}
	out := make([]rampStop, len(stops))
	for i, s := range stops {
		c, err := ParseHexColor(s.Color)
		if err != nil {
			return Ramp{}, err
		}
		pos := float64(i) / float64(len(stops)-1)
		if s.Position != nil {
			if math.IsNaN(*s.Position) {
				return Ramp{}, fmt.Errorf("%w: stop %d position is NaN", ErrInvalidRamp, i)
			}
			pos = math.Max(0, math.Min(1, *s.Position))
		}
		out[i] = rampStop{pos: pos, c: c}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return Ramp{stops: out}, nil
}

// At returns the colour for t. t is clamped to [0,1]; channels are rounded.
func (r Ramp) At(t float64) color.NRGBA {
	if len(r.stops) == 0 {
		r = DefaultRamp()
	}
	if math.IsNaN(t) || t <= r.stops[0].pos {
		return r.stops[0].c
	}
	last := r.stops[len(r.stops)-1]
	if t >= last.pos {
		return last.c
	}
	for i := 1; i < len(r.stops); i++ {
		a, b := r.stops[i-1], r.stops[i]
		if t > b.pos {
			continue
		}
		span := b.pos - a.pos
		if span <= 0 {
			return b.c
		}
		f := (t - a.pos) / span
		return color.NRGBA{
			R: lerp8(a.c.R, b.c.R, f),
			G: lerp8(a.c.G, b.c.G, f),
			B: lerp8(a.c.B, b.c.B, f),
			A: lerp8(a.c.A, b.c.A, f),
		}
	}
	return last.c
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

// Normalize maps v into [0,1] over [lo,hi]. An empty range is treated as
// width 1.
func Normalize(v, lo, hi float64) float64 {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return math.Max(0, math.Min(1, (v-lo)/span))
}

// ColorOptions controls Colorize.
type ColorOptions struct {
	Min   float64
	Max   float64
	Ramp  Ramp
	Alpha uint8
}

// Colorize renders r into an image with one pixel per cell. Missing cells
// are fully transparent.
func Colorize(r *Raster, o ColorOptions) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.Values[y*r.Width+x]
			if math.IsNaN(v) {
				continue
			}
			c := o.Ramp.At(Normalize(v, o.Min, o.Max))
			c.A = o.Alpha
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// ParseHexColor parses "#rgb" or "#rrggbb" (the '#' is optional) into an
// opaque colour.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: bad color %q", ErrInvalidRamp, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: bad color %q", ErrInvalidRamp, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// HexColor formats c as "#rrggbb".
func HexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette returns n evenly spaced colours sampled from the ramp.
func (r Ramp) Palette(n int) []color.Color {
	if n < 2 {
		n = 2
	}
	out := make([]color.Color, n)
	for i := range out {
		out[i] = r.At(float64(i) / float64(n-1))
	}
	return out
}

func toNRGBA(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
