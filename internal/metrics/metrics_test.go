package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	imagepkg "github.com/youruser/moodmap/internal/image"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&imagepkg.CompositionError{Kind: imagepkg.ContextUnavailable}, "context_unavailable"},
		{fmt.Errorf("wrapped: %w", &imagepkg.CompositionError{Kind: imagepkg.EncodeFailed}), "encode_failed"},
		{context.Canceled, "canceled"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserverCounts(t *testing.T) {
	m := New()
	var _ imagepkg.Observer = m

	m.SlotDecodeFailed()
	m.SlotDecodeFailed()
	m.ExportFinished(nil, 120*time.Millisecond)
	m.ExportFinished(&imagepkg.CompositionError{Kind: imagepkg.EncodeFailed}, time.Second)

	if got := testutil.ToFloat64(m.decodeFailed); got != 2 {
		t.Errorf("decode failures = %v", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok exports = %v", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("encode_failed")); got != 1 {
		t.Errorf("failed exports = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if body := rec.Body.String(); !strings.Contains(body, "moodmap_export_duration_seconds_count 2") {
		t.Errorf("metrics output missing histogram:\n%s", body)
	}
}
