// Package board holds the editable state behind a moodmap: the ordered
// slots, the style and layout settings, and which colours the user has
// picked by hand.
package board

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	imagepkg "github.com/youruser/moodmap/internal/image"
	"github.com/youruser/moodmap/internal/layout"
	"github.com/youruser/moodmap/internal/style"
)

const DefaultSlots = 9

var (
	ErrLastSlot     = errors.New("board must keep at least one slot")
	ErrSlotNotFound = errors.New("slot not found")
	ErrNotImage     = imagepkg.ErrNotImage
	ErrInvalidColor = style.ErrInvalidColor
	ErrInvalidTheme = errors.New("theme must be light or dark")
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Board is safe for concurrent use.
type Board struct {
	ID string

	mu      sync.RWMutex
	slots   []imagepkg.Slot
	style   style.Params
	layout  layout.Params
	theme   Theme
	touched struct{ background, titleColor bool }
	updated time.Time
}

// Snapshot is an immutable copy of a board, safe to hand to the
// compositor while the board keeps changing.
type Snapshot struct {
	ID     string
	Slots  []imagepkg.Slot
	Style  style.Params
	Layout layout.Params
	Theme  Theme
}

func New() *Board {
	b := &Board{
		ID:     uuid.NewString(),
		style:  style.Default(),
		layout: layout.Default(),
		theme:  ThemeLight,
	}
	b.slots = emptySlots(DefaultSlots)
	b.updated = time.Now()
	return b
}

func emptySlots(n int) []imagepkg.Slot {
	out := make([]imagepkg.Slot, n)
	for i := range out {
		out[i] = imagepkg.Slot{ID: uuid.NewString()}
	}
	return out
}

// AddSlot appends an empty slot and returns its id.
func (b *Board) AddSlot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := imagepkg.Slot{ID: uuid.NewString()}
	b.slots = append(b.slots, s)
	b.touch()
	return s.ID
}

func (b *Board) RemoveSlot(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, id)
	}
	if len(b.slots) <= 1 {
		return ErrLastSlot
	}
	b.slots = slices.Delete(b.slots, i, i+1)
	b.touch()
	return nil
}

func (b *Board) RemoveLastSlot() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.slots) <= 1 {
		return ErrLastSlot
	}
	b.slots = b.slots[:len(b.slots)-1]
	b.touch()
	return nil
}

// AssignImage replaces the image of one slot. Data that does not sniff as
// image/* is rejected and the slot is left unchanged.
func (b *Board) AssignImage(id string, data []byte) error {
	src, err := imagepkg.NewBytesSource(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, id)
	}
	b.slots[i].Source = src
	b.touch()
	return nil
}

func (b *Board) ClearImage(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, id)
	}
	b.slots[i].Source = nil
	b.touch()
	return nil
}

// AddImages drops a batch of uploads into the empty slots in order and
// appends new slots for whatever is left. Non-image entries are skipped;
// the number placed is returned together with an error listing the
// rejected indexes.
func (b *Board) AddImages(batch [][]byte) (int, error) {
	var (
		srcs     []imagepkg.Source
		rejected []int
	)
	for i, data := range batch {
		src, err := imagepkg.NewBytesSource(data)
		if err != nil {
			rejected = append(rejected, i)
			continue
		}
		srcs = append(srcs, src)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	next := 0
	for i := range b.slots {
		if next == len(srcs) {
			break
		}
		if b.slots[i].Source == nil {
			b.slots[i].Source = srcs[next]
			next++
		}
	}
	for ; next < len(srcs); next++ {
		b.slots = append(b.slots, imagepkg.Slot{ID: uuid.NewString(), Source: srcs[next]})
	}
	if len(srcs) > 0 {
		b.touch()
	}
	if len(rejected) > 0 {
		return len(srcs), fmt.Errorf("%w: uploads %v", ErrNotImage, rejected)
	}
	return len(srcs), nil
}

// Reset restores the default nine empty slots. Style and layout are kept.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots = emptySlots(DefaultSlots)
	b.touch()
}

func (b *Board) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style.Title = title
	b.touch()
}

// SetBackground keeps the previous colour when hex is invalid.
func (b *Board) SetBackground(hex string) error {
	c, err := style.NormalizeColor(hex)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style.Background = c
	b.touched.background = true
	b.touch()
	return nil
}

// SetTitleColor keeps the previous colour when hex is invalid.
func (b *Board) SetTitleColor(hex string) error {
	c, err := style.NormalizeColor(hex)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style.TitleColor = c
	b.touched.titleColor = true
	b.touch()
	return nil
}

// SetTheme switches the theme; colours the user never picked follow the
// theme defaults.
func (b *Board) SetTheme(t Theme) error {
	bg, title := style.LightBackground, style.LightTitle
	switch t {
	case ThemeLight:
	case ThemeDark:
		bg, title = style.DarkBackground, style.DarkTitle
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, t)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.theme = t
	if !b.touched.background {
		b.style.Background = bg
	}
	if !b.touched.titleColor {
		b.style.TitleColor = title
	}
	b.touch()
	return nil
}

// SetCellSize clamps to the allowed range and returns the applied value.
func (b *Board) SetCellSize(px int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.layout.CellSize = px
	b.layout = b.layout.Clamped()
	b.touch()
	return b.layout.CellSize
}

// SetGap clamps to the allowed range and returns the applied value.
func (b *Board) SetGap(px int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.layout.Gap = px
	b.layout = b.layout.Clamped()
	b.touch()
	return b.layout.Gap
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		ID:     b.ID,
		Slots:  slices.Clone(b.slots),
		Style:  b.style,
		Layout: b.layout,
		Theme:  b.theme,
	}
}

// LastUpdated is used by the store to expire idle boards.
func (b *Board) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}

func (b *Board) indexOf(id string) int {
	return slices.IndexFunc(b.slots, func(s imagepkg.Slot) bool { return s.ID == id })
}

func (b *Board) touch() { b.updated = time.Now() }
