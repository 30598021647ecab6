// Package style covers the visual parameters of an export: colours,
// title text and the derived download file name.
package style

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultTitle    = "MOODMAP"
	DefaultBaseName = "moodmap"
	maxBaseNameLen  = 30
)

const (
	LightBackground = "#fafaf9"
	LightTitle      = "#1c1917"
	DarkBackground  = "#1c1917"
	DarkTitle       = "#fafaf9"
)

var ErrInvalidColor = errors.New("invalid color")

// Params are the style inputs of one export. Colors must already be
// normalized; see NormalizeColor.
type Params struct {
	Background string `json:"background" yaml:"background"`
	Title      string `json:"title" yaml:"title"`
	TitleColor string `json:"title_color" yaml:"title_color"`
}

func Default() Params {
	return Params{Background: LightBackground, TitleColor: LightTitle}
}

// DisplayTitle is the text drawn in the title band.
func (p Params) DisplayTitle() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return DefaultTitle
}

// NormalizeColor accepts #RGB or #RRGGBB (leading # optional, any case)
// and returns lowercase #rrggbb.
func NormalizeColor(s string) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 3 && len(h) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	for _, r := range h {
		if !isHex(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}
	h = strings.ToLower(h)
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	return "#" + h, nil
}

// ParseColor normalizes s and converts it to an opaque color.
func ParseColor(s string) (color.NRGBA, error) {
	n, err := NormalizeColor(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	v, err := strconv.ParseUint(n[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Colors resolves both style colours, falling back to the light theme for
// anything that does not parse.
func (p Params) Colors() (bg, title color.NRGBA) {
	bg, err := ParseColor(p.Background)
	if err != nil {
		bg, _ = ParseColor(LightBackground)
	}
	title, err = ParseColor(p.TitleColor)
	if err != nil {
		title, _ = ParseColor(LightTitle)
	}
	return bg, title
}

// SanitizeTitle turns a title into a file-system safe base name.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if strings.ContainsRune(`\/:*?"<>|`, r) || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			continue
		}
		b.WriteRune(r)
	}
	name := strings.Join(strings.Fields(b.String()), "-")

	runes := []rune(name)
	if len(runes) > maxBaseNameLen {
		name = strings.TrimRight(string(runes[:maxBaseNameLen]), "-")
	}
	if name == "" {
		return DefaultBaseName
	}
	return name
}

// FileName is "<sanitized title>-<YYYY-MM-DD>.<ext>" using the UTC date.
func FileName(title string, now time.Time, ext string) string {
	return SanitizeTitle(title) + "-" + now.UTC().Format("2006-01-02") + "." + ext
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
