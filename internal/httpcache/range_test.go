package httpcache

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveRange(t *testing.T, spec, body string) *httptest.ResponseRecorder {
	t.Helper()
	rp := newTestResponder()
	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("Range", spec)
	return doRespond(t, rp, req, Options{Key: "k", ContentType: "video/mp4"}, body)
}

func TestRangeFirstBytes(t *testing.T) {
	rec := serveRange(t, "bytes=0-3", "0123456789")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if rec.Body.String() != "0123" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-3/10" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q", got)
	}
}

func TestRangeOpenEnded(t *testing.T) {
	rec := serveRange(t, "bytes=7-", "0123456789")
	if rec.Body.String() != "789" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 7-9/10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestRangeSuffix(t *testing.T) {
	rec := serveRange(t, "bytes=-2", "0123456789")
	if rec.Body.String() != "89" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRangeEndClampedToSize(t *testing.T) {
	rec := serveRange(t, "bytes=8-99", "0123456789")
	if rec.Body.String() != "89" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 8-9/10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestRangeUnsatisfiable(t *testing.T) {
	rec := serveRange(t, "bytes=50-60", "0123456789")
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestRangeMalformedSpec(t *testing.T) {
	rec := serveRange(t, "bytes=abc", "0123456789")
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
}

func TestRangeHeadOmitsBody(t *testing.T) {
	rp := newTestResponder()
	req := httptest.NewRequest(http.MethodHead, "/r", nil)
	req.Header.Set("Range", "bytes=0-3")
	rec := doRespond(t, rp, req, Options{Key: "k", ContentType: "video/mp4"}, "0123456789")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Error("HEAD range response carried a body")
	}
	if got := rec.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q", got)
	}
}
