package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/youruser/moodmap/internal/layout"
	"github.com/youruser/moodmap/internal/style"
)

var (
	red   = color.NRGBA{R: 0xff, A: 0xff}
	green = color.NRGBA{G: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
)

// stripes encodes a PNG of three equal bands (red, green, blue), laid out
// left to right when vertical is true, top to bottom otherwise.
func stripes(t *testing.T, w, h int, vertical bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	bands := []color.NRGBA{red, green, blue}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y * 3 / h
			if vertical {
				i = x * 3 / w
			}
			img.SetNRGBA(x, y, bands[i])
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func emptySlots(n int) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{ID: string(rune('a' + i))}
	}
	return slots
}

func near(a, b color.NRGBA, tol int) bool {
	d := func(x, y uint8) bool {
		v := int(x) - int(y)
		return v <= tol && v >= -tol
	}
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func anyPixel(img *image.NRGBA, r image.Rectangle, pred func(color.NRGBA) bool) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if pred(img.NRGBAAt(x, y)) {
				return true
			}
		}
	}
	return false
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

type errSource struct{}

func (errSource) Open(context.Context) (io.ReadCloser, error) { return nil, errors.New("gone") }
func (errSource) String() string                              { return "err" }

type countingObserver struct {
	failed   atomic.Int32
	finished atomic.Int32
	lastErr  error
}

func (o *countingObserver) SlotDecodeFailed() { o.failed.Add(1) }
func (o *countingObserver) ExportFinished(err error, _ time.Duration) {
	o.finished.Add(1)
	o.lastErr = err
}

func fixedNow() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

func TestComposeEmptyDefaultGrid(t *testing.T) {
	c := New(nil)
	c.Now = fixedNow
	lp, sp := layout.Default(), style.Default()

	art, err := c.Compose(context.Background(), emptySlots(9), lp, sp)
	if err != nil {
		t.Fatal(err)
	}
	if art.Width != 1192 {
		t.Errorf("width = %d, want 1192", art.Width)
	}
	if _, h := lp.CanvasSize(9); art.Height != h {
		t.Errorf("height = %d, want %d", art.Height, h)
	}
	if art.FileName != "moodmap-2026-10-19.jpg" {
		t.Errorf("file name = %q", art.FileName)
	}
	if art.ContentType != "image/jpeg" || len(art.Data) == 0 || art.FailedSlots != 0 {
		t.Errorf("artifact = %s, %d bytes, %d failed", art.ContentType, len(art.Data), art.FailedSlots)
	}
	decoded, format, err := image.Decode(bytes.NewReader(art.Data))
	if err != nil || format != "jpeg" {
		t.Fatalf("decode artifact: %v (%s)", err, format)
	}
	if decoded.Bounds().Dx() != 1192 {
		t.Errorf("decoded width = %d", decoded.Bounds().Dx())
	}
}

func TestRenderPlaceholdersTitleFooter(t *testing.T) {
	c := New(nil)
	lp, sp := layout.Default(), style.Default()
	canvas, failed, err := c.Render(context.Background(), emptySlots(9), lp, sp)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 0 {
		t.Errorf("failed = %d", failed)
	}
	bg, _ := sp.Colors()
	if got := canvas.NRGBAAt(0, 0); got != bg {
		t.Errorf("corner = %v, want background %v", got, bg)
	}
	notBG := func(c color.NRGBA) bool { return c != bg }

	first := canvas.NRGBAAt(center(lp.Cell(0)).X, center(lp.Cell(0)).Y)
	if first == bg {
		t.Error("placeholder fill missing")
	}
	for i := 1; i < 9; i++ {
		p := center(lp.Cell(i))
		if got := canvas.NRGBAAt(p.X, p.Y); got != first {
			t.Errorf("cell %d centre = %v, want %v", i, got, first)
		}
	}
	// Rounded corner: the outermost pixel of a cell stays background.
	if got := canvas.NRGBAAt(lp.Cell(0).Min.X, lp.Cell(0).Min.Y); got != bg {
		t.Errorf("cell corner = %v, want clipped background", got)
	}
	if !anyPixel(canvas, lp.TitleRect(9), notBG) {
		t.Error("title band is blank")
	}
	if !anyPixel(canvas, lp.FooterRect(9), notBG) {
		t.Error("footer caption missing")
	}
}

func TestRenderCoverFitWideImage(t *testing.T) {
	slots := emptySlots(3)
	src, err := NewBytesSource(stripes(t, 300, 100, true))
	if err != nil {
		t.Fatal(err)
	}
	slots[0].Source = src

	lp := layout.Default()
	canvas, failed, err := New(nil).Render(context.Background(), slots, lp, style.Default())
	if err != nil || failed != 0 {
		t.Fatalf("Render: failed=%d err=%v", failed, err)
	}
	cell := lp.Cell(0)
	mid := center(cell)
	// Only the centre band survives a horizontal crop.
	for _, p := range []image.Point{mid, {cell.Min.X + 2, mid.Y}, {cell.Max.X - 3, mid.Y}} {
		if got := canvas.NRGBAAt(p.X, p.Y); !near(got, green, 3) {
			t.Errorf("pixel %v = %v, want green", p, got)
		}
	}
}

func TestRenderCoverFitTallImage(t *testing.T) {
	slots := emptySlots(1)
	src, err := NewBytesSource(stripes(t, 100, 300, false))
	if err != nil {
		t.Fatal(err)
	}
	slots[0].Source = src

	lp := layout.Params{CellSize: 240, Gap: 0}
	canvas, _, err := New(nil).Render(context.Background(), slots, lp, style.Default())
	if err != nil {
		t.Fatal(err)
	}
	cell := lp.Cell(0)
	mid := center(cell)
	for _, p := range []image.Point{mid, {mid.X, cell.Min.Y + 2}, {mid.X, cell.Max.Y - 3}} {
		if got := canvas.NRGBAAt(p.X, p.Y); !near(got, green, 3) {
			t.Errorf("pixel %v = %v, want green", p, got)
		}
	}
}

func TestComposeDecodeFailureIsSoft(t *testing.T) {
	slots := emptySlots(4)
	good, err := NewBytesSource(stripes(t, 90, 90, true))
	if err != nil {
		t.Fatal(err)
	}
	slots[0].Source = good
	slots[1].Source = &BytesSource{Data: []byte("definitely not an image"), MIME: "image/png"}
	slots[2].Source = errSource{}

	obs := &countingObserver{}
	c := New(nil)
	c.Observer = obs

	art, err := c.Compose(context.Background(), slots, layout.Default(), style.Default())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if art.FailedSlots != 2 {
		t.Errorf("FailedSlots = %d, want 2", art.FailedSlots)
	}
	if got := obs.failed.Load(); got != 2 {
		t.Errorf("observer saw %d decode failures, want 2", got)
	}
	if obs.finished.Load() != 1 || obs.lastErr != nil {
		t.Errorf("ExportFinished calls = %d, err = %v", obs.finished.Load(), obs.lastErr)
	}

	lp := layout.Default()
	canvas, _, err := c.Render(context.Background(), slots, lp, style.Default())
	if err != nil {
		t.Fatal(err)
	}
	at := func(i int) color.NRGBA {
		p := center(lp.Cell(i))
		return canvas.NRGBAAt(p.X, p.Y)
	}
	if !near(at(0), green, 3) {
		t.Errorf("good slot centre = %v, want green", at(0))
	}
	if at(1) != at(3) || at(2) != at(3) {
		t.Errorf("failed slots %v, %v should match empty slot %v", at(1), at(2), at(3))
	}
}

func TestComposeEncodeFailed(t *testing.T) {
	tests := []struct {
		name string
		enc  EncodeFunc
	}{
		{"encoder error", func(io.Writer, image.Image, int) error { return errors.New("boom") }},
		{"no output", func(io.Writer, image.Image, int) error { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &countingObserver{}
			c := New(nil)
			c.Encode = tt.enc
			c.Observer = obs
			_, err := c.Compose(context.Background(), emptySlots(1), layout.Default(), style.Default())
			var ce *CompositionError
			if !errors.As(err, &ce) || ce.Kind != EncodeFailed {
				t.Fatalf("err = %v, want EncodeFailed", err)
			}
			if !errors.Is(err, &CompositionError{Kind: EncodeFailed}) {
				t.Error("errors.Is does not match kind")
			}
			if obs.lastErr == nil {
				t.Error("observer not told about the failure")
			}
		})
	}
}

func TestComposeContextUnavailable(t *testing.T) {
	// 300 slots at the largest cell size is far taller than any canvas.
	_, err := New(nil).Compose(context.Background(), emptySlots(300), layout.Params{CellSize: 560, Gap: 40}, style.Default())
	if !errors.Is(err, &CompositionError{Kind: ContextUnavailable}) {
		t.Fatalf("err = %v, want ContextUnavailable", err)
	}
}

func TestComposeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slots := emptySlots(2)
	slots[0].Source = errSource{}
	if _, err := New(nil).Compose(ctx, slots, layout.Default(), style.Default()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRenderDeterministic(t *testing.T) {
	slots := emptySlots(5)
	wide, _ := NewBytesSource(stripes(t, 640, 200, true))
	tall, _ := NewBytesSource(stripes(t, 120, 500, false))
	slots[1].Source = wide
	slots[3].Source = tall
	sp := style.Params{Background: "#203040", Title: "Same twice", TitleColor: "#eeeeee"}
	lp := layout.Params{CellSize: 300, Gap: 12}

	c := New(nil)
	a, _, err := c.Render(context.Background(), slots, lp, sp)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := c.Render(context.Background(), slots, lp, sp)
	if err != nil {
		t.Fatal(err)
	}
	if a.Bounds() != b.Bounds() || !bytes.Equal(a.Pix, b.Pix) {
		t.Error("two renders of identical input differ")
	}
}

func TestRenderFooterQR(t *testing.T) {
	c := New(nil)
	c.FooterQR = "https://example.com/moodmap"
	lp, sp := layout.Default(), style.Default()
	canvas, _, err := c.Render(context.Background(), emptySlots(3), lp, sp)
	if err != nil {
		t.Fatal(err)
	}
	_, fg := sp.Colors()
	footer := lp.FooterRect(3)
	right := image.Rect(footer.Max.X-layout.FooterBand, footer.Min.Y, footer.Max.X, footer.Max.Y)
	if !anyPixel(canvas, right, func(c color.NRGBA) bool { return c == fg }) {
		t.Error("no QR modules in the footer corner")
	}
}

func TestFooterQRTooLongIsSkipped(t *testing.T) {
	lp := layout.Default()
	footer := lp.FooterRect(3)
	w, h := lp.CanvasSize(3)
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))

	err := drawFooterQR(canvas, footer, strings.Repeat("moodmap ", 200), red)
	if !errors.Is(err, ErrQRTooLarge) {
		t.Fatalf("err = %v, want ErrQRTooLarge", err)
	}
	if anyPixel(canvas, canvas.Bounds(), func(c color.NRGBA) bool { return c.A != 0 }) {
		t.Error("canvas touched by an oversized QR")
	}

	c := New(nil)
	c.FooterQR = strings.Repeat("moodmap ", 200)
	if _, _, err := c.Render(context.Background(), emptySlots(3), lp, style.Default()); err != nil {
		t.Fatalf("Render = %v, want the QR skipped", err)
	}
}

func TestMaxSlots(t *testing.T) {
	for _, lp := range []layout.Params{layout.Default(), {CellSize: 560, Gap: 40}, {CellSize: 240, Gap: 0}} {
		n := MaxSlots(lp)
		if n < 9 || n%layout.Columns != 0 {
			t.Fatalf("MaxSlots(%+v) = %d", lp, n)
		}
		if err := checkCanvas(lp.CanvasSize(n)); err != nil {
			t.Errorf("MaxSlots(%+v) = %d does not fit: %v", lp, n, err)
		}
		if err := checkCanvas(lp.CanvasSize(n + 1)); err == nil {
			t.Errorf("MaxSlots(%+v) = %d but %d still fits", lp, n, n+1)
		}
	}
	if n := MaxSlots(layout.Default()); n != 258 {
		t.Errorf("MaxSlots(default) = %d, want 258", n)
	}
}

func TestRoundedMask(t *testing.T) {
	m := roundedMask(100, 100, 20)
	if a := m.AlphaAt(0, 0).A; a != 0 {
		t.Errorf("corner alpha = %d, want 0", a)
	}
	if a := m.AlphaAt(50, 50).A; a != 0xff {
		t.Errorf("centre alpha = %d, want 255", a)
	}
	if a := m.AlphaAt(50, 1).A; a != 0xff {
		t.Errorf("edge alpha = %d, want 255", a)
	}
}
