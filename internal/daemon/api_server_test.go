package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelf/internal/api"
	"shelf/internal/testsupport"
	"shelf/internal/toolrunner"
)

func request(t *testing.T, handler http.HandlerFunc, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestStatusEndpoint(t *testing.T) {
	d, _ := newTestDaemon(t, &scriptedExecutor{})

	rr := request(t, d.api.handleStatus, http.MethodGet, "/api/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var payload api.DaemonStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload.PID == 0 {
		t.Error("pid missing from status")
	}
	if len(payload.Checks) == 0 {
		t.Error("checks missing from status")
	}

	rr = request(t, d.api.handleStatus, http.MethodPost, "/api/status", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rr.Code)
	}
}

func TestProbeEndpointRevalidates(t *testing.T) {
	exec := &scriptedExecutor{stdout: probePayload}
	d, cfg := newTestDaemon(t, exec)
	testsupport.WriteFile(t, cfg.Paths.LibraryDir, "movies/heat.mkv", []byte("media"))

	rr := request(t, d.api.handleResources, http.MethodGet, "/api/resources/probe/movies/heat.mkv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	var decoded struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode probe payload: %v", err)
	}
	if len(decoded.Streams) != 1 {
		t.Errorf("streams = %d", len(decoded.Streams))
	}

	rr = request(t, d.api.handleResources, http.MethodGet, "/api/resources/probe/movies/heat.mkv",
		map[string]string{"If-None-Match": etag})
	if rr.Code != http.StatusNotModified {
		t.Fatalf("revalidation status = %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Error("304 must not carry a body")
	}
	if got := exec.launches.Load(); got != 1 {
		t.Errorf("tool launches = %d", got)
	}
}

func TestFileEndpointServesRanges(t *testing.T) {
	d, cfg := newTestDaemon(t, &scriptedExecutor{})
	testsupport.WriteFile(t, cfg.Paths.LibraryDir, "clip.bin", []byte("0123456789"))

	rr := request(t, d.api.handleResources, http.MethodGet, "/api/resources/file/clip.bin",
		map[string]string{"Range": "bytes=2-5"})
	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != "2345" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}

	rr = request(t, d.api.handleResources, http.MethodGet, "/api/resources/file/clip.bin",
		map[string]string{"Range": "bytes=50-60"})
	if rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("out-of-range status = %d", rr.Code)
	}
}

func TestChaptersEndpoint(t *testing.T) {
	exec := &scriptedExecutor{stderr: chapterDiagnostic}
	d, cfg := newTestDaemon(t, exec)
	testsupport.WriteFile(t, cfg.Paths.LibraryDir, "movie.mkv", []byte("media"))

	rr := request(t, d.api.handleResources, http.MethodGet, "/api/resources/chapters/movie.mkv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var decoded struct {
		Chapters []struct {
			Title string `json:"title"`
		} `json:"chapters"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode chapters: %v", err)
	}
	if len(decoded.Chapters) != 2 {
		t.Fatalf("chapters = %d", len(decoded.Chapters))
	}
	if decoded.Chapters[0].Title != "Opening" {
		t.Errorf("first chapter title = %q", decoded.Chapters[0].Title)
	}
}

func TestThumbEndpoint(t *testing.T) {
	exec := &scriptedExecutor{artifact: "jpeg-bytes"}
	d, cfg := newTestDaemon(t, exec)
	testsupport.WriteFile(t, cfg.Paths.LibraryDir, "movie.mkv", []byte("media"))

	rr := request(t, d.api.handleResources, http.MethodGet, "/api/resources/thumb/video/movie.mkv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("content type = %q", got)
	}
	if rr.Body.String() != "jpeg-bytes" {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = request(t, d.api.handleResources, http.MethodGet, "/api/resources/thumb/sepia/movie.mkv", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown variant status = %d", rr.Code)
	}
}

func TestUnknownResourceKind(t *testing.T) {
	d, _ := newTestDaemon(t, &scriptedExecutor{})
	rr := request(t, d.api.handleResources, http.MethodGet, "/api/resources/palette/movie.mkv", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestJournalEndpoint(t *testing.T) {
	exec := &scriptedExecutor{stdout: probePayload}
	d, cfg := newTestDaemon(t, exec, testsupport.WithJournal())
	testsupport.WriteFile(t, cfg.Paths.LibraryDir, "movie.mkv", []byte("media"))

	rr := request(t, d.api.handleResources, http.MethodGet, "/api/resources/probe/movie.mkv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("probe status = %d", rr.Code)
	}

	rr = request(t, d.api.handleJournal, http.MethodGet, "/api/journal?limit=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("journal status = %d", rr.Code)
	}
	var payload api.JournalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if len(payload.Entries) != 1 {
		t.Fatalf("entries = %d", len(payload.Entries))
	}
	if payload.Entries[0].Class != string(toolrunner.ClassProbe) {
		t.Errorf("entry class = %q", payload.Entries[0].Class)
	}
}

func TestAuthMiddleware(t *testing.T) {
	d, _ := newTestDaemon(t, &scriptedExecutor{})
	protected := authMiddleware("secret", d.api.handleStatus)

	rr := request(t, protected, http.MethodGet, "/api/status", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d", rr.Code)
	}

	rr = request(t, protected, http.MethodGet, "/api/status",
		map[string]string{"Authorization": "Bearer wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", rr.Code)
	}

	rr = request(t, protected, http.MethodGet, "/api/status",
		map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Errorf("valid token status = %d", rr.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	d, _ := newTestDaemon(t, &scriptedExecutor{})
	wrapped := requestIDMiddleware(d.api.handleStatus)

	rr := request(t, wrapped, http.MethodGet, "/api/status", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("generated request id missing from response")
	}

	rr = request(t, wrapped, http.MethodGet, "/api/status",
		map[string]string{"X-Request-ID": "abc-123"})
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("client request id not echoed: %q", got)
	}
}
