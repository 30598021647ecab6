package imagepkg

import "fmt"

// ErrorKind classifies composition failures.
type ErrorKind int

const (
	// ContextUnavailable: the drawing surface could not be created.
	ContextUnavailable ErrorKind = iota + 1
	// EncodeFailed: the encoder produced no output.
	EncodeFailed
	// ImageDecodeFailed is per slot and never escapes Compose; the slot is
	// drawn as a placeholder instead.
	ImageDecodeFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ContextUnavailable:
		return "context unavailable"
	case EncodeFailed:
		return "encode failed"
	case ImageDecodeFailed:
		return "image decode failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

type CompositionError struct {
	Kind ErrorKind
	Slot int // only for ImageDecodeFailed
	Err  error
}

func (e *CompositionError) Error() string {
	if e.Kind == ImageDecodeFailed {
		return fmt.Sprintf("compose: slot %d: %s: %v", e.Slot, e.Kind, e.Err)
	}
	if e.Err == nil {
		return "compose: " + e.Kind.String()
	}
	return fmt.Sprintf("compose: %s: %v", e.Kind, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// Is matches any *CompositionError of the same kind, so callers can write
// errors.Is(err, &CompositionError{Kind: EncodeFailed}).
func (e *CompositionError) Is(target error) bool {
	t, ok := target.(*CompositionError)
	return ok && t.Kind == e.Kind
}
