package httpcache

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shelf/internal/toolrunner"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestResponder() *Responder {
	rp := NewResponder(nil)
	rp.now = func() time.Time { return testNow }
	return rp
}

func doRespond(t *testing.T, rp *Responder, req *http.Request, opts Options, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	produced := false
	rp.Respond(rec, req, opts, func() ([]byte, error) {
		produced = true
		return []byte(body), nil
	})
	if rec.Code == http.StatusNotModified && produced {
		t.Fatal("produce ran for a not-modified response")
	}
	return rec
}

func TestIfModifiedSinceMatchYields304(t *testing.T) {
	rp := newTestResponder()
	lastModified := testNow.Add(-time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-Modified-Since", lastModified.Format(http.TimeFormat))

	rec := doRespond(t, rp, req, Options{Key: "k", LastModified: lastModified}, "body")
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatal("304 carried a body")
	}
}

func TestIfModifiedSinceSecondTruncation(t *testing.T) {
	rp := newTestResponder()
	// Sub-second precision on the server side must not defeat a client
	// echoing the second-precision header.
	lastModified := testNow.Add(-time.Hour).Add(400 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-Modified-Since", lastModified.Truncate(time.Second).Format(http.TimeFormat))

	rec := doRespond(t, rp, req, Options{Key: "k", LastModified: lastModified}, "body")
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
}

func TestStaleIfModifiedSinceYieldsFullResponse(t *testing.T) {
	rp := newTestResponder()
	lastModified := testNow.Add(-time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-Modified-Since", lastModified.Add(-time.Second).Format(http.TimeFormat))

	rec := doRespond(t, rp, req, Options{Key: "k", LastModified: lastModified}, "body")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "body" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("Last-Modified missing on full response")
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("ETag missing on full response")
	}
}

func TestETagMatchShortCircuitsDateCheck(t *testing.T) {
	rp := newTestResponder()

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-None-Match", ETagFor("resource-key"))

	// No If-Modified-Since at all: entity identity alone must suffice.
	rec := doRespond(t, rp, req, Options{Key: "resource-key"}, "body")
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
}

func TestETagMismatchProduces(t *testing.T) {
	rp := newTestResponder()

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-None-Match", ETagFor("different-key"))

	rec := doRespond(t, rp, req, Options{Key: "resource-key"}, "body")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMaxAgeFreshnessWithoutLastModified(t *testing.T) {
	rp := newTestResponder()

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-Modified-Since", testNow.Add(-time.Minute).Format(http.TimeFormat))

	fresh := doRespond(t, rp, req, Options{Key: "k", MaxAge: time.Hour}, "body")
	if fresh.Code != http.StatusNotModified {
		t.Fatalf("within max-age: status = %d, want 304", fresh.Code)
	}

	req.Header.Set("If-Modified-Since", testNow.Add(-2*time.Hour).Format(http.TimeFormat))
	stale := doRespond(t, rp, req, Options{Key: "k", MaxAge: time.Hour}, "body")
	if stale.Code != http.StatusOK {
		t.Fatalf("past max-age: status = %d, want 200", stale.Code)
	}
}

func TestMalformedValidatorsFailOpen(t *testing.T) {
	rp := newTestResponder()

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-Modified-Since", "not a date")

	rec := doRespond(t, rp, req, Options{Key: "k", LastModified: testNow.Add(-time.Hour)}, "body")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for malformed validator", rec.Code)
	}
}

func TestCacheControlVariants(t *testing.T) {
	rp := newTestResponder()

	withAge := doRespond(t, rp, httptest.NewRequest(http.MethodGet, "/r", nil),
		Options{Key: "k", MaxAge: 300 * time.Second}, "body")
	if got := withAge.Header().Get("Cache-Control"); got != "public, max-age=300" {
		t.Errorf("Cache-Control = %q", got)
	}
	if withAge.Header().Get("Expires") == "" {
		t.Error("Expires missing with max-age")
	}

	keyOnly := doRespond(t, rp, httptest.NewRequest(http.MethodGet, "/r", nil),
		Options{Key: "k"}, "body")
	if got := keyOnly.Header().Get("Cache-Control"); got != "public" {
		t.Errorf("Cache-Control = %q", got)
	}

	uncacheable := doRespond(t, rp, httptest.NewRequest(http.MethodGet, "/r", nil),
		Options{}, "body")
	if got := uncacheable.Header().Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestAgeHeaderFromLastModified(t *testing.T) {
	rp := newTestResponder()
	rec := doRespond(t, rp, httptest.NewRequest(http.MethodGet, "/r", nil),
		Options{Key: "k", LastModified: testNow.Add(-90 * time.Second)}, "body")
	if got := rec.Header().Get("Age"); got != "90" {
		t.Errorf("Age = %q, want 90", got)
	}
}

func TestCompressionForTextualContent(t *testing.T) {
	rp := newTestResponder()
	body := strings.Repeat("compressible ", 100)

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := doRespond(t, rp, req, Options{Key: "k", ContentType: "text/html"}, body)
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q", got)
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decoded) != body {
		t.Error("round-tripped body mismatch")
	}
}

func TestCompressionExclusions(t *testing.T) {
	rp := newTestResponder()

	for _, contentType := range []string{"video/mp4", "audio/flac", "image/jpeg", "font/woff2", "application/octet-stream"} {
		req := httptest.NewRequest(http.MethodGet, "/r", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := doRespond(t, rp, req, Options{Key: "k", ContentType: contentType}, "body")
		if rec.Header().Get("Content-Encoding") != "" {
			t.Errorf("%s was compressed", contentType)
		}
	}

	// A ranged request is never compressed, whatever the content type.
	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Range", "bytes=0-1")
	rec := doRespond(t, rp, req, Options{Key: "k", ContentType: "text/plain"}, "body")
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("ranged request was compressed")
	}
	if rec.Code != http.StatusPartialContent {
		t.Errorf("ranged request status = %d, want 206", rec.Code)
	}
}

func TestHeadEmitsHeadersWithoutBody(t *testing.T) {
	rp := newTestResponder()

	req := httptest.NewRequest(http.MethodHead, "/r", nil)
	rec := doRespond(t, rp, req, Options{Key: "k", ContentType: "video/mp4"}, "0123456789")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "10" {
		t.Errorf("Content-Length = %q, want 10", got)
	}
	if rec.Body.Len() != 0 {
		t.Error("HEAD response carried a body")
	}
}

func TestProducerErrorIsUncacheable5xx(t *testing.T) {
	rp := newTestResponder()
	rec := httptest.NewRecorder()

	rp.Respond(rec, httptest.NewRequest(http.MethodGet, "/r", nil),
		Options{Key: "k", LastModified: testNow.Add(-time.Hour)},
		func() ([]byte, error) { return nil, errors.New("probe blew up") })

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("ETag") != "" || rec.Header().Get("Last-Modified") != "" {
		t.Error("error response carried validators")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestTimeoutErrorMapsTo504(t *testing.T) {
	rp := newTestResponder()
	rec := httptest.NewRecorder()

	rp.Respond(rec, httptest.NewRequest(http.MethodGet, "/r", nil), Options{},
		func() ([]byte, error) {
			return nil, toolrunner.Wrap(toolrunner.ErrTimeout, "probe", "run", "over budget", nil)
		})
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
}

func TestETagForStability(t *testing.T) {
	if ETagFor("key") != ETagFor("key") {
		t.Error("ETag not deterministic")
	}
	if ETagFor("key-a") == ETagFor("key-b") {
		t.Error("distinct keys produced identical ETags")
	}
	if !strings.HasPrefix(ETagFor("key"), `"`) || !strings.HasSuffix(ETagFor("key"), `"`) {
		t.Error("ETag not quoted")
	}
	if ETagFor("") != "" {
		t.Error("empty key must not produce an ETag")
	}
}

func TestBareProfileCarriesNoValidators(t *testing.T) {
	rp := newTestResponder()
	lastModified := testNow.Add(-time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	rec := doRespond(t, rp, req, Options{LastModified: lastModified}, "body")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
	for _, header := range []string{"Last-Modified", "Age", "ETag"} {
		if got := rec.Header().Get(header); got != "" {
			t.Errorf("%s = %q, want unset", header, got)
		}
	}

	// A dated conditional request against the bare profile must still
	// regenerate rather than validate.
	req = httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("If-Modified-Since", lastModified.Format(http.TimeFormat))
	rec = doRespond(t, rp, req, Options{LastModified: lastModified}, "body")
	if rec.Code != http.StatusOK {
		t.Fatalf("conditional status = %d, want 200", rec.Code)
	}
}
