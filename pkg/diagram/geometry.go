package diagram

import "math"

/*
Geometry is the centre-anchored placement of a board item: Miro reports the
centre point plus the rendered width and height.
*/
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

/*
BoundingBox is the axis-aligned extent of an item in board coordinates. Y grows
downwards, so Top < Bottom.
*/
type BoundingBox struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

/*
NewBoundingBox derives the box from a centre point and size. The second return
value is false when any input is NaN or infinite, or when the size is not
positive; such items take no part in geometry-based inference.
*/
func NewBoundingBox(x, y, width, height float64) (BoundingBox, bool) {
	for _, v := range []float64{x, y, width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, false
		}
	}

	if width <= 0 || height <= 0 {
		return BoundingBox{}, false
	}

	return BoundingBox{
		Left:   x - width/2,
		Right:  x + width/2,
		Top:    y - height/2,
		Bottom: y + height/2,
	}, true
}

// Box resolves the bounding box of g, if any.
func (g *Geometry) Box() (BoundingBox, bool) {
	if g == nil {
		return BoundingBox{}, false
	}

	return NewBoundingBox(g.X, g.Y, g.Width, g.Height)
}

func (b BoundingBox) Width() float64   { return b.Right - b.Left }
func (b BoundingBox) Height() float64  { return b.Bottom - b.Top }
func (b BoundingBox) Area() float64    { return b.Width() * b.Height() }
func (b BoundingBox) CenterX() float64 { return (b.Left + b.Right) / 2 }
func (b BoundingBox) CenterY() float64 { return (b.Top + b.Bottom) / 2 }

/*
Intersection returns the area shared by both boxes, zero when they only touch
or are disjoint.
*/
func (b BoundingBox) Intersection(o BoundingBox) float64 {
	w := b.HorizontalOverlap(o)
	h := min(b.Bottom, o.Bottom) - max(b.Top, o.Top)

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h
}

// HorizontalOverlap is negative when the boxes are separated horizontally.
func (b BoundingBox) HorizontalOverlap(o BoundingBox) float64 {
	return min(b.Right, o.Right) - max(b.Left, o.Left)
}

// Contains reports whether o lies fully inside b (edges inclusive).
func (b BoundingBox) Contains(o BoundingBox) bool {
	return o.Left >= b.Left && o.Right <= b.Right && o.Top >= b.Top && o.Bottom <= b.Bottom
}

// Translate shifts the box by dx, dy.
func (b BoundingBox) Translate(dx, dy float64) BoundingBox {
	return BoundingBox{Left: b.Left + dx, Right: b.Right + dx, Top: b.Top + dy, Bottom: b.Bottom + dy}
}
