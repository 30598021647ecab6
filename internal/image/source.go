package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/youruser/moodmap/internal/util"
)

var ErrNotImage = errors.New("not an image")

// Source yields the encoded bytes of one slot image.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// Slot is one grid position. A nil Source is an empty slot.
type Slot struct {
	ID     string
	Source Source
}

// SniffImage returns the detected MIME type of data, or ErrNotImage when
// it is not image/*.
func SniffImage(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return mime, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	return mime, nil
}

// BytesSource is an uploaded image held in memory.
type BytesSource struct {
	Data []byte
	MIME string
}

// NewBytesSource sniffs data and rejects anything that is not an image.
func NewBytesSource(data []byte) (*BytesSource, error) {
	mime, err := SniffImage(data)
	if err != nil {
		return nil, err
	}
	return &BytesSource{Data: data, MIME: mime}, nil
}

func (s *BytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

func (s *BytesSource) String() string {
	return fmt.Sprintf("upload(%s, %d bytes)", s.MIME, len(s.Data))
}

// FileSource reads an image from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

func (s FileSource) String() string { return s.Path }

// URLSource downloads an image over HTTP.
type URLSource struct {
	URL      string
	Timeout  time.Duration
	MaxBytes int64
}

func (s URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	body, err := util.GetBytes(ctx, s.URL, s.Timeout, s.MaxBytes)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (s URLSource) String() string { return s.URL }

// SourceFor maps a CLI-style reference to a Source: "" and "-" are empty
// slots, http(s) URLs are fetched, anything else is a file path.
func SourceFor(ref string, timeout time.Duration, maxBytes int64) Source {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "" || ref == "-":
		return nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return URLSource{URL: ref, Timeout: timeout, MaxBytes: maxBytes}
	default:
		return FileSource{Path: ref}
	}
}
