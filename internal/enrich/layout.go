package enrich

// Layout measures rendered code blocks against the visible viewport.
type Layout interface {
	BlockHeight(lines int) float64
	ViewportHeight() float64
}

// LineLayout estimates block height as lines times a fixed line height.
type LineLayout struct {
	LineHeight float64
	Viewport   float64
}

func (l LineLayout) BlockHeight(lines int) float64 { return float64(lines) * l.LineHeight }
func (l LineLayout) ViewportHeight() float64       { return l.Viewport }
