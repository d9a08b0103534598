package httpcache

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"shelf/internal/logging"
	"shelf/internal/toolrunner"
)

// Options describes how one response participates in caching.
type Options struct {
	// Key identifies the entity; it feeds the ETag. Empty disables
	// entity-based validation.
	Key string
	// LastModified feeds the Last-Modified validator. Zero disables
	// date-based validation.
	LastModified time.Time
	// MaxAge, when positive, bounds client-side freshness.
	MaxAge time.Duration
	// ContentType of the produced body.
	ContentType string
}

// cacheable reports whether the response participates in caching at all. A
// bare profile (no key, no freshness window) carries no validators.
func (opts Options) cacheable() bool {
	return opts.Key != "" || opts.MaxAge > 0
}

// Responder applies the conditional-caching protocol to responses.
type Responder struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewResponder constructs a responder.
func NewResponder(logger *slog.Logger) *Responder {
	return &Responder{
		logger: logging.NewComponentLogger(logger, "httpcache"),
		now:    time.Now,
	}
}

// ETagFor derives the entity tag emitted for a cache key.
func ETagFor(key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%q", strconv.FormatUint(xxhash.Sum64String(key), 16))
}

// Respond runs the caching decision for one request. produce is only called
// when the client's copy is stale or absent; its error aborts the response
// with an uncacheable 5xx.
func (rp *Responder) Respond(w http.ResponseWriter, r *http.Request, opts Options, produce func() ([]byte, error)) {
	now := rp.now()
	etag := ETagFor(opts.Key)

	if rp.notModified(r, etag, opts, now) {
		headers := w.Header()
		if etag != "" {
			headers.Set("ETag", etag)
		}
		rp.applyCacheHeaders(headers, opts, now)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := produce()
	if err != nil {
		rp.respondError(w, r, err)
		return
	}

	headers := w.Header()
	if etag != "" {
		headers.Set("ETag", etag)
	}
	if opts.cacheable() && !opts.LastModified.IsZero() {
		headers.Set("Last-Modified", opts.LastModified.UTC().Format(http.TimeFormat))
	}
	rp.applyCacheHeaders(headers, opts, now)
	if opts.ContentType != "" {
		headers.Set("Content-Type", opts.ContentType)
	}

	isHead := r.Method == http.MethodHead

	if shouldCompress(r, opts.ContentType) {
		writeCompressed(w, r, body, isHead)
		return
	}

	if rangeSpec := strings.TrimSpace(r.Header.Get("Range")); rangeSpec != "" {
		writeRange(w, rangeSpec, body, isHead)
		return
	}

	headers.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if !isHead {
		_, _ = w.Write(body)
	}
}

// notModified applies the validator precedence: an entity-tag match
// short-circuits the date check entirely.
func (rp *Responder) notModified(r *http.Request, etag string, opts Options, now time.Time) bool {
	if !opts.cacheable() {
		return false
	}
	if etag != "" && etagMatches(r.Header.Get("If-None-Match"), etag) {
		return true
	}

	since, ok := parseHTTPTime(r.Header.Get("If-Modified-Since"))
	if !ok {
		return false
	}
	if !opts.LastModified.IsZero() {
		// HTTP dates carry second precision; truncate before comparing so
		// a client echoing our own Last-Modified always validates.
		return !opts.LastModified.UTC().Truncate(time.Second).After(since)
	}
	if opts.MaxAge > 0 {
		return now.Before(since.Add(opts.MaxAge))
	}
	return false
}

func (rp *Responder) applyCacheHeaders(headers http.Header, opts Options, now time.Time) {
	switch {
	case opts.MaxAge > 0:
		headers.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(opts.MaxAge.Seconds())))
		headers.Set("Expires", now.Add(opts.MaxAge).UTC().Format(http.TimeFormat))
	case opts.Key != "":
		headers.Set("Cache-Control", "public")
	default:
		// Uncacheable; no freshness metadata accompanies it.
		headers.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		headers.Set("Expires", "-1")
		return
	}
	if !opts.LastModified.IsZero() {
		age := now.Sub(opts.LastModified)
		if age < 0 {
			age = 0
		}
		headers.Set("Age", strconv.Itoa(int(age.Seconds())))
	}
}

// respondError emits an uncacheable failure; error responses never carry
// validators.
func (rp *Responder) respondError(w http.ResponseWriter, r *http.Request, err error) {
	rp.logger.Error("resource producer failed",
		logging.String("path", r.URL.Path),
		logging.Error(err))

	headers := w.Header()
	headers.Del("ETag")
	headers.Del("Last-Modified")
	headers.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	headers.Set("Expires", "-1")

	status := toolrunner.HTTPStatus(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	http.Error(w, http.StatusText(status), status)
}

func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// parseHTTPTime treats malformed dates as absent; a bad validator must fail
// open to a full response, never to an error.
func parseHTTPTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
