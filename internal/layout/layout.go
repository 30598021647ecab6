// Package layout holds the grid arithmetic for a moodmap export: canvas
// size, cell placement, corner radius and cover-fit crop rectangles.
package layout

import (
	"image"
	"math"
)

const (
	Columns      = 3
	OuterPadding = 40
	TitleBand    = 120
	FooterBand   = 64

	MinCellSize     = 240
	MaxCellSize     = 560
	DefaultCellSize = 360

	MinGap     = 0
	MaxGap     = 40
	DefaultGap = 16

	minRadius = 12
	maxRadius = 22
)

// Params are the user-adjustable layout knobs. Columns, padding and band
// heights are fixed.
type Params struct {
	CellSize int `json:"cell_size" yaml:"cell_size"`
	Gap      int `json:"gap" yaml:"gap"`
}

func Default() Params {
	return Params{CellSize: DefaultCellSize, Gap: DefaultGap}
}

// Clamped returns p with cell size and gap forced into their bounds.
func (p Params) Clamped() Params {
	return Params{
		CellSize: clamp(p.CellSize, MinCellSize, MaxCellSize),
		Gap:      clamp(p.Gap, MinGap, MaxGap),
	}
}

// Rows is ceil(slots/Columns), never less than 1.
func Rows(slots int) int {
	if slots <= Columns {
		return 1
	}
	return (slots + Columns - 1) / Columns
}

// CanvasSize returns the output dimensions for n slots.
func (p Params) CanvasSize(n int) (w, h int) {
	rows := Rows(n)
	w = 2*OuterPadding + Columns*p.CellSize + (Columns-1)*p.Gap
	h = 2*OuterPadding + TitleBand + rows*p.CellSize + (rows-1)*p.Gap + FooterBand
	return w, h
}

// Cell returns the canvas rectangle of slot i, row-major.
func (p Params) Cell(i int) image.Rectangle {
	row, col := i/Columns, i%Columns
	x := OuterPadding + col*(p.CellSize+p.Gap)
	y := OuterPadding + TitleBand + row*(p.CellSize+p.Gap)
	return image.Rect(x, y, x+p.CellSize, y+p.CellSize)
}

// TitleRect is the band the title is centred in.
func (p Params) TitleRect(n int) image.Rectangle {
	w, _ := p.CanvasSize(n)
	return image.Rect(OuterPadding, OuterPadding, w-OuterPadding, OuterPadding+TitleBand)
}

// FooterRect is the band below the last grid row.
func (p Params) FooterRect(n int) image.Rectangle {
	w, h := p.CanvasSize(n)
	bottom := h - OuterPadding
	return image.Rect(OuterPadding, bottom-FooterBand, w-OuterPadding, bottom)
}

// CornerRadius is clamp(cell*0.05, 12, 22).
func (p Params) CornerRadius() float64 {
	r := float64(p.CellSize) * 0.05
	return math.Min(math.Max(r, minRadius), maxRadius)
}

// Crop is a source rectangle in image pixel space, before rounding.
type Crop struct {
	X, Y, W, H float64
}

// CoverCrop computes the centred source rectangle that, stretched to
// cellW x cellH, covers the cell without letterboxing.
func CoverCrop(imgW, imgH, cellW, cellH int) Crop {
	if imgW <= 0 || imgH <= 0 || cellW <= 0 || cellH <= 0 {
		return Crop{}
	}
	scale := math.Max(float64(cellW)/float64(imgW), float64(cellH)/float64(imgH))
	w := float64(cellW) / scale
	h := float64(cellH) / scale
	return Crop{
		X: (float64(imgW) - w) / 2,
		Y: (float64(imgH) - h) / 2,
		W: w,
		H: h,
	}
}

// Rect rounds the crop to whole pixels, offset by the image origin.
func (c Crop) Rect(origin image.Point) image.Rectangle {
	r := image.Rect(
		int(math.Round(c.X)),
		int(math.Round(c.Y)),
		int(math.Round(c.X+c.W)),
		int(math.Round(c.Y+c.H)),
	)
	return r.Add(origin)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
