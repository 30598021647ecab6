package imagepkg

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	titleFontSize    = 44
	minTitleFontSize = 18
	footerFontSize   = 14
)

type fontSet struct {
	title  *opentype.Font
	footer *opentype.Font
}

var (
	fontsOnce sync.Once
	fonts     fontSet
	fontsErr  error
)

// loadFonts parses the embedded Go fonts once; *opentype.Font is safe for
// concurrent use, faces are not.
func loadFonts() (fontSet, error) {
	fontsOnce.Do(func() {
		fonts.title, fontsErr = opentype.Parse(gomedium.TTF)
		if fontsErr != nil {
			return
		}
		fonts.footer, fontsErr = opentype.Parse(goregular.TTF)
	})
	return fonts, fontsErr
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// fitFace returns the largest face, stepping down from size, whose
// rendering of text fits in maxWidth. The caller closes the face.
func fitFace(f *opentype.Font, text string, size, minSize float64, maxWidth int) (font.Face, error) {
	for {
		face, err := newFace(f, size)
		if err != nil {
			return nil, err
		}
		if size <= minSize || font.MeasureString(face, text).Ceil() <= maxWidth {
			return face, nil
		}
		face.Close()
		size -= 2
	}
}

// drawCentered draws text centred horizontally and vertically in r.
func drawCentered(dst draw.Image, face font.Face, text string, r image.Rectangle, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	m := face.Metrics()
	adv := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(r.Min.X) + (fixed.I(r.Dx())-adv)/2,
		Y: fixed.I(r.Min.Y) + (fixed.I(r.Dy())+m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
}
