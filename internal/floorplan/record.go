package floorplan

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/twin.report/internal/geom"
)

// ElementRecord is the flat form of an Element used by storage and JSON.
// Which optional fields are meaningful depends on Type.
type ElementRecord struct {
	ID          int64        `json:"id"`
	CanvasID    int64        `json:"canvas_id"`
	Type        Kind         `json:"type"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Width       *float64     `json:"width,omitempty"`
	Height      *float64     `json:"height,omitempty"`
	Radius      *float64     `json:"radius,omitempty"`
	Points      []geom.Point `json:"points,omitempty"`
	Text        *string      `json:"text,omitempty"`
	Icon        *string      `json:"icon,omitempty"`
	Fill        string       `json:"fill"`
	Stroke      string       `json:"stroke"`
	StrokeWidth float64      `json:"stroke_width"`
	FontSize    float64      `json:"font_size"`
	Rotation    float64      `json:"rotation"`
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func ptr[T any](v T) *T { return &v }

// DecodeElement converts a record into an Element, applying defaults for
// missing optional fields. Unknown types and triangles without exactly three
// points are rejected.
func DecodeElement(r ElementRecord) (Element, error) {
	style := Style{Fill: r.Fill, Stroke: r.Stroke, StrokeWidth: r.StrokeWidth}
	if style.Fill == "" {
		style.Fill = DefaultFill
	}
	if style.Stroke == "" {
		style.Stroke = DefaultStroke
	}
	at := geom.Pt(r.X, r.Y)

	var shape Shape
	switch r.Type {
	case KindRect:
		shape = Rect{Center: at, W: orDefault(r.Width, DefaultShapeSize), H: orDefault(r.Height, DefaultShapeSize)}
	case KindCircle:
		shape = Circle{Center: at, R: orDefault(r.Radius, DefaultCircleRadius)}
	case KindTriangle:
		if len(r.Points) != 3 {
			return Element{}, fmt.Errorf("%w: triangle needs 3 points, got %d", ErrInvalidGeometry, len(r.Points))
		}
		shape = Triangle{V: [3]geom.Point{r.Points[0], r.Points[1], r.Points[2]}}
	case KindText:
		text := ""
		if r.Text != nil {
			text = *r.Text
		}
		fs := r.FontSize
		if fs <= 0 {
			fs = DefaultFontSize
		}
		shape = Text{At: at, Content: text, FontSize: fs}
	case KindIcon:
		name := DefaultIcon
		if r.Icon != nil && *r.Icon != "" {
			name = *r.Icon
		}
		shape = Icon{Center: at, W: orDefault(r.Width, DefaultShapeSize), H: orDefault(r.Height, DefaultShapeSize), Name: name}
	default:
		return Element{}, fmt.Errorf("unknown element type %q", r.Type)
	}
	return Element{
		ID:       r.ID,
		CanvasID: r.CanvasID,
		Style:    style,
		Rotation: geom.NormalizeDegrees(r.Rotation),
		Shape:    shape,
	}, nil
}

// Record flattens e.
func (e Element) Record() ElementRecord {
	r := ElementRecord{
		ID:          e.ID,
		CanvasID:    e.CanvasID,
		Type:        e.Kind(),
		Fill:        e.Style.Fill,
		Stroke:      e.Style.Stroke,
		StrokeWidth: e.Style.StrokeWidth,
		FontSize:    DefaultFontSize,
		Rotation:    e.Rotation,
	}
	a := e.Shape.Anchor()
	r.X, r.Y = a.X, a.Y
	switch s := e.Shape.(type) {
	case Rect:
		r.Width, r.Height = ptr(s.W), ptr(s.H)
	case Circle:
		r.Radius = ptr(s.R)
	case Triangle:
		r.Points = []geom.Point{s.V[0], s.V[1], s.V[2]}
	case Text:
		r.Text = ptr(s.Content)
		r.FontSize = s.FontSize
	case Icon:
		r.Width, r.Height = ptr(s.W), ptr(s.H)
		r.Icon = ptr(s.Name)
	}
	return r
}

// MarshalJSON encodes e in its flat record form.
func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Record())
}

// UnmarshalJSON decodes a flat record.
func (e *Element) UnmarshalJSON(b []byte) error {
	var r ElementRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	el, err := DecodeElement(r)
	if err != nil {
		return err
	}
	*e = el
	return nil
}
