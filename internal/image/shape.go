package imagepkg

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// kappa places cubic Bézier control points for a quarter circle.
const kappa = 0.5522848

const (
	placeholderInset  = 6
	placeholderStroke = 2
)

var (
	placeholderFill   = color.NRGBA{R: 0x78, G: 0x71, B: 0x6c, A: 0x1a}
	placeholderBorder = color.NRGBA{R: 0x78, G: 0x71, B: 0x6c, A: 0x40}
	footerColor       = color.NRGBA{R: 0x78, G: 0x71, B: 0x6c, A: 0x66}
)

// roundedMask rasterizes a w x h rounded rectangle into an alpha mask.
func roundedMask(w, h int, radius float64) *image.Alpha {
	fw, fh, r := float32(w), float32(h), float32(radius)
	if m := min(fw, fh) / 2; r > m {
		r = m
	}
	k := r * kappa

	z := vector.NewRasterizer(w, h)
	z.MoveTo(r, 0)
	z.LineTo(fw-r, 0)
	z.CubeTo(fw-r+k, 0, fw, r-k, fw, r)
	z.LineTo(fw, fh-r)
	z.CubeTo(fw, fh-r+k, fw-r+k, fh, fw-r, fh)
	z.LineTo(r, fh)
	z.CubeTo(r-k, fh, 0, fh-r+k, 0, fh-r)
	z.LineTo(0, r)
	z.CubeTo(0, r-k, r-k, 0, r, 0)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// drawPlaceholder paints the empty-slot indicator inside the clipped cell.
func drawPlaceholder(dst draw.Image, cell image.Rectangle, mask *image.Alpha) {
	draw.DrawMask(dst, cell, image.NewUniform(placeholderFill), image.Point{}, mask, image.Point{}, draw.Over)

	in := cell.Inset(placeholderInset)
	s := placeholderStroke
	edges := []image.Rectangle{
		image.Rect(in.Min.X, in.Min.Y, in.Max.X, in.Min.Y+s),
		image.Rect(in.Min.X, in.Max.Y-s, in.Max.X, in.Max.Y),
		image.Rect(in.Min.X, in.Min.Y+s, in.Min.X+s, in.Max.Y-s),
		image.Rect(in.Max.X-s, in.Min.Y+s, in.Max.X, in.Max.Y-s),
	}
	border := image.NewUniform(placeholderBorder)
	for _, e := range edges {
		draw.DrawMask(dst, e, border, image.Point{}, mask, e.Min.Sub(cell.Min), draw.Over)
	}
}
