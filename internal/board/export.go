package board

import (
	"context"

	imagepkg "github.com/youruser/moodmap/internal/image"
)

// Export composes the current state of b. The board can keep changing
// while the export runs; it works from a snapshot.
func Export(ctx context.Context, c *imagepkg.Compositor, b *Board) (*imagepkg.Artifact, error) {
	s := b.Snapshot()
	return c.Compose(ctx, s.Slots, s.Layout, s.Style)
}

// Filled counts slots holding an image.
func (s Snapshot) Filled() int {
	n := 0
	for _, sl := range s.Slots {
		if sl.Source != nil {
			n++
		}
	}
	return n
}
