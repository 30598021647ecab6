package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/disintegration/imaging"

	"github.com/youruser/moodmap/internal/layout"
	"github.com/youruser/moodmap/internal/style"
)

const (
	DefaultQuality = 92
	DefaultWorkers = 4

	FooterCaption = "CREATED WITH MOODMAP"
	ContentType   = "image/jpeg"

	// Largest canvas we agree to allocate, matching common canvas limits.
	maxCanvasSide = 32767
	maxCanvasArea = 268435456
)

// EncodeFunc serializes the finished canvas.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// Observer receives export outcomes, typically for metrics.
type Observer interface {
	SlotDecodeFailed()
	ExportFinished(err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) SlotDecodeFailed()                   {}
func (nopObserver) ExportFinished(error, time.Duration) {}

// Artifact is the result of one export. The compositor keeps no reference
// to it.
type Artifact struct {
	Data        []byte
	FileName    string
	ContentType string
	Width       int
	Height      int
	// FailedSlots counts populated slots that were drawn as placeholders.
	FailedSlots int
}

// Compositor renders slot grids into a single JPEG. The zero value is
// usable; New fills in the defaults explicitly.
type Compositor struct {
	Quality       int
	Workers       int
	DecodeTimeout time.Duration // 0 waits indefinitely
	FooterQR      string        // optional text encoded as a QR in the footer

	Encode   EncodeFunc
	Now      func() time.Time
	Logger   *slog.Logger
	Observer Observer
}

func New(logger *slog.Logger) *Compositor {
	return &Compositor{
		Quality: DefaultQuality,
		Workers: DefaultWorkers,
		Encode:  EncodeJPEG,
		Now:     time.Now,
		Logger:  logger,
	}
}

// Compose renders slots and encodes the result. Only ContextUnavailable,
// EncodeFailed and context cancellation are returned; unreadable slot
// images become placeholders.
func (c *Compositor) Compose(ctx context.Context, slots []Slot, lp layout.Params, sp style.Params) (*Artifact, error) {
	start := time.Now()
	art, err := c.compose(ctx, slots, lp, sp)
	elapsed := time.Since(start)
	c.observer().ExportFinished(err, elapsed)
	if err != nil {
		c.logger().Error("export failed", "slots", len(slots), "error", err)
		return nil, err
	}
	c.logger().Info("export finished",
		"file", art.FileName, "width", art.Width, "height", art.Height,
		"bytes", len(art.Data), "failed_slots", art.FailedSlots, "elapsed", elapsed)
	return art, nil
}

func (c *Compositor) compose(ctx context.Context, slots []Slot, lp layout.Params, sp style.Params) (*Artifact, error) {
	canvas, failed, err := c.Render(ctx, slots, lp, sp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.encoder()(&buf, canvas, c.quality()); err != nil {
		return nil, &CompositionError{Kind: EncodeFailed, Err: err}
	}
	if buf.Len() == 0 {
		return nil, &CompositionError{Kind: EncodeFailed}
	}

	b := canvas.Bounds()
	return &Artifact{
		Data:        buf.Bytes(),
		FileName:    style.FileName(sp.Title, c.now(), "jpg"),
		ContentType: ContentType,
		Width:       b.Dx(),
		Height:      b.Dy(),
		FailedSlots: failed,
	}, nil
}

// Render draws the grid without encoding it. It returns the canvas and the
// number of populated slots that could not be decoded.
func (c *Compositor) Render(ctx context.Context, slots []Slot, lp layout.Params, sp style.Params) (*image.NRGBA, int, error) {
	slots = slices.Clone(slots)
	lp = lp.Clamped()
	n := len(slots)

	w, h := lp.CanvasSize(n)
	if err := checkCanvas(w, h); err != nil {
		return nil, 0, err
	}
	fs, err := loadFonts()
	if err != nil {
		return nil, 0, &CompositionError{Kind: ContextUnavailable, Err: err}
	}

	bg, fg := sp.Colors()
	canvas := imaging.New(w, h, bg)

	title := sp.DisplayTitle()
	titleRect := lp.TitleRect(n)
	face, err := fitFace(fs.title, title, titleFontSize, minTitleFontSize, titleRect.Dx())
	if err != nil {
		return nil, 0, &CompositionError{Kind: ContextUnavailable, Err: err}
	}
	drawCentered(canvas, face, title, titleRect, fg)
	face.Close()

	imgs := c.decodeAll(ctx, slots)
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	mask := roundedMask(lp.CellSize, lp.CellSize, lp.CornerRadius())
	failed := 0
	for i, s := range slots {
		cell := lp.Cell(i)
		img := imgs[i]
		imgs[i] = nil
		if img == nil || !drawCover(canvas, cell, img, mask) {
			if s.Source != nil {
				failed++
			}
			drawPlaceholder(canvas, cell, mask)
		}
	}

	footer := lp.FooterRect(n)
	face, err = newFace(fs.footer, footerFontSize)
	if err != nil {
		return nil, 0, &CompositionError{Kind: ContextUnavailable, Err: err}
	}
	drawCentered(canvas, face, FooterCaption, footer, footerColor)
	face.Close()

	if c.FooterQR != "" {
		if err := drawFooterQR(canvas, footer, c.FooterQR, fg); err != nil {
			c.logger().Warn("footer qr skipped", "error", err)
		}
	}
	return canvas, failed, nil
}

// drawCover crops the centred cover-fit region of img, scales it to the
// cell and draws it through the rounded mask. It reports false when the
// image has no drawable area.
func drawCover(dst draw.Image, cell image.Rectangle, img image.Image, mask *image.Alpha) bool {
	b := img.Bounds()
	crop := layout.CoverCrop(b.Dx(), b.Dy(), cell.Dx(), cell.Dy()).Rect(b.Min)
	if crop.Empty() {
		return false
	}
	tile := imaging.Resize(imaging.Crop(img, crop), cell.Dx(), cell.Dy(), imaging.Lanczos)
	draw.DrawMask(dst, cell, tile, image.Point{}, mask, image.Point{}, draw.Over)
	return true
}

// MaxSlots returns the largest slot count whose canvas stays within the
// drawable limits for lp, rounded down to whole rows. It is 0 when not even
// one row fits.
func MaxSlots(lp layout.Params) int {
	lp = lp.Clamped()
	n := 0
	for rows := 1; ; rows++ {
		if checkCanvas(lp.CanvasSize(rows*layout.Columns)) != nil {
			return n
		}
		n = rows * layout.Columns
	}
}

func checkCanvas(w, h int) error {
	if w <= 0 || h <= 0 || w > maxCanvasSide || h > maxCanvasSide || w*h > maxCanvasArea {
		return &CompositionError{
			Kind: ContextUnavailable,
			Err:  fmt.Errorf("canvas %dx%d exceeds drawable limits", w, h),
		}
	}
	return nil
}

func (c *Compositor) quality() int {
	if c.Quality <= 0 || c.Quality > 100 {
		return DefaultQuality
	}
	return c.Quality
}

func (c *Compositor) workers() int {
	if c.Workers <= 0 {
		return DefaultWorkers
	}
	return c.Workers
}

func (c *Compositor) encoder() EncodeFunc {
	if c.Encode == nil {
		return EncodeJPEG
	}
	return c.Encode
}

func (c *Compositor) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Compositor) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Compositor) observer() Observer {
	if c.Observer == nil {
		return nopObserver{}
	}
	return c.Observer
}
