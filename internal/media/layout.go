package media

import "image"

// GridLayout is the geometry of a mosaic: Count cells of CellWidth by
// CellHeight placed row-major across Columns.
type GridLayout struct {
	Count      int
	Columns    int
	Rows       int
	CellWidth  int
	CellHeight int
}

// NewGridLayout computes the layout for count cells.
func NewGridLayout(count, columns, cellWidth, cellHeight int) GridLayout {
	if columns < 1 {
		columns = 1
	}
	rows := 0
	if count > 0 {
		rows = (count + columns - 1) / columns
	}
	return GridLayout{
		Count:      count,
		Columns:    columns,
		Rows:       rows,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
	}
}

// Width is the canvas width in pixels.
func (g GridLayout) Width() int { return g.Columns * g.CellWidth }

// Height is the canvas height in pixels.
func (g GridLayout) Height() int { return g.Rows * g.CellHeight }

// Bounds is the canvas rectangle.
func (g GridLayout) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width(), g.Height())
}

// Position is the top-left corner of cell i.
func (g GridLayout) Position(i int) image.Point {
	return image.Pt((i%g.Columns)*g.CellWidth, (i/g.Columns)*g.CellHeight)
}

// Cell is the rectangle occupied by cell i.
func (g GridLayout) Cell(i int) image.Rectangle {
	p := g.Position(i)
	return image.Rect(p.X, p.Y, p.X+g.CellWidth, p.Y+g.CellHeight)
}
