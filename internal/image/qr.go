package imagepkg

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

const qrMargin = 8

// ErrQRTooLarge is returned when the encoded text needs more modules than
// the footer band can hold.
var ErrQRTooLarge = errors.New("qr code does not fit the footer")

// GenerateQRImage returns a size x size QR code for text, drawn in fg on a
// transparent background so it sits on any canvas colour.
func GenerateQRImage(text string, size int, fg color.Color) (image.Image, error) {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.ForegroundColor = fg
	q.BackgroundColor = color.Transparent
	return q.Image(size), nil
}

// drawFooterQR places the QR right-aligned inside the footer band.
func drawFooterQR(dst draw.Image, footer image.Rectangle, text string, fg color.Color) error {
	size := footer.Dy() - 2*qrMargin
	qr, err := GenerateQRImage(text, size, fg)
	if err != nil {
		return err
	}
	// go-qrcode may return a larger image than asked for small sizes.
	b := qr.Bounds()
	if b.Dy() > footer.Dy() || b.Dx() > footer.Dx() {
		return fmt.Errorf("%w: %dpx in a %dpx band", ErrQRTooLarge, b.Dy(), footer.Dy())
	}
	at := image.Pt(footer.Max.X-b.Dx(), footer.Min.Y+(footer.Dy()-b.Dy())/2)
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, qr, b.Min, draw.Over)
	return nil
}
