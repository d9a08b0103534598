package httpcache

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"
)

// compressionExemptPrefixes lists content-type families that are either
// already compressed or streaming-sensitive; compressing them wastes CPU or
// breaks byte-offset expectations.
var compressionExemptPrefixes = []string{"audio/", "video/", "image/", "font/", "application/"}

func shouldCompress(r *http.Request, contentType string) bool {
	if strings.TrimSpace(r.Header.Get("Range")) != "" {
		return false
	}
	if !acceptsGzip(r.Header.Get("Accept-Encoding")) {
		return false
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return false
	}
	for _, prefix := range compressionExemptPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return false
		}
	}
	return true
}

func acceptsGzip(acceptEncoding string) bool {
	for _, part := range strings.Split(acceptEncoding, ",") {
		encoding := part
		if semi := strings.IndexByte(encoding, ';'); semi >= 0 {
			// A zero q-value is an explicit refusal.
			q := strings.TrimSpace(encoding[semi+1:])
			if q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000" {
				continue
			}
			encoding = encoding[:semi]
		}
		encoding = strings.ToLower(strings.TrimSpace(encoding))
		if encoding == "gzip" || encoding == "*" {
			return true
		}
	}
	return false
}

// writeCompressed buffers the gzip-encoded body so Content-Length reflects
// the bytes actually sent.
func writeCompressed(w http.ResponseWriter, r *http.Request, body []byte, isHead bool) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := gz.Close(); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	headers := w.Header()
	headers.Set("Content-Encoding", "gzip")
	headers.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if !isHead {
		_, _ = w.Write(buf.Bytes())
	}
}
