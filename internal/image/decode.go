package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"

	_ "golang.org/x/image/webp"
)

// ErrImageTooLarge is returned for images whose header declares more pixels
// than a whole canvas may hold.
var ErrImageTooLarge = errors.New("image dimensions too large")

func decodeSource(ctx context.Context, src Source) (image.Image, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxCanvasArea/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

// decodeAll decodes every populated slot concurrently and waits for all of
// them. A failed slot is left nil in the result and reported through the
// logger and observer; it never fails the batch.
func (c *Compositor) decodeAll(ctx context.Context, slots []Slot) []image.Image {
	imgs := make([]image.Image, len(slots))
	sem := semaphore.NewWeighted(int64(c.workers()))

	var wg sync.WaitGroup
	for i, s := range slots {
		if s.Source == nil {
			continue
		}
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			sctx := ctx
			if c.DecodeTimeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, c.DecodeTimeout)
				defer cancel()
			}
			img, err := decodeSource(sctx, s.Source)
			if err != nil {
				c.logger().Warn("slot image unavailable, drawing placeholder",
					"slot", i, "slot_id", s.ID, "source", s.Source.String(),
					"error", &CompositionError{Kind: ImageDecodeFailed, Slot: i, Err: err})
				c.observer().SlotDecodeFailed()
				return
			}
			imgs[i] = img
		}()
	}
	wg.Wait()
	return imgs
}
