package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/homewarden/homewarden/internal/log"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), recoveryMiddleware(log.NewNop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal_error") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestRecoveryMiddlewareAfterHeadersSent(t *testing.T) {
	// Once headers are flushed, the recovered panic must not attempt a
	// second WriteHeader.
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("boom")
	}), recoveryMiddleware(log.NewNop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want the already-sent 202", rec.Code)
	}
}

func TestLoggingWriterCapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	lw := &loggingWriter{w: rec}

	lw.WriteHeader(http.StatusTeapot)
	if _, err := lw.Write([]byte("short and stout")); err != nil {
		t.Fatal(err)
	}

	if lw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d", lw.statusCode)
	}
	if lw.bytesWritten != int64(len("short and stout")) {
		t.Errorf("bytesWritten = %d", lw.bytesWritten)
	}
}

func TestLoggingWriterImplicitOK(t *testing.T) {
	lw := &loggingWriter{w: httptest.NewRecorder()}
	if _, err := lw.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if lw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want implicit 200", lw.statusCode)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
		}
	}
}
