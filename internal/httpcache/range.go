package httpcache

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type byteRange struct {
	start, end int64 // inclusive
}

// writeRange serves a single byte range from the produced body with 206/416
// semantics. Multi-part ranges are not supported; only the first range of a
// compound spec is honored.
func writeRange(w http.ResponseWriter, spec string, body []byte, isHead bool) {
	size := int64(len(body))
	br, ok := parseRange(spec, size)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	chunk := body[br.start : br.end+1]
	headers := w.Header()
	headers.Set("Accept-Ranges", "bytes")
	headers.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.start, br.end, size))
	headers.Set("Content-Length", strconv.Itoa(len(chunk)))
	w.WriteHeader(http.StatusPartialContent)
	if !isHead {
		_, _ = w.Write(chunk)
	}
}

// parseRange understands the bytes=start-end, bytes=start-, and
// bytes=-suffix forms.
func parseRange(spec string, size int64) (byteRange, bool) {
	spec = strings.TrimSpace(spec)
	const prefix = "bytes="
	if !strings.HasPrefix(spec, prefix) {
		return byteRange{}, false
	}
	spec = strings.TrimPrefix(spec, prefix)
	if comma := strings.IndexByte(spec, ','); comma >= 0 {
		spec = spec[:comma]
	}

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, false
	}
	startPart := strings.TrimSpace(spec[:dash])
	endPart := strings.TrimSpace(spec[dash+1:])

	if startPart == "" {
		// Suffix form: the last N bytes.
		n, err := strconv.ParseInt(endPart, 10, 64)
		if err != nil || n <= 0 {
			return byteRange{}, false
		}
		if n > size {
			n = size
		}
		if size == 0 {
			return byteRange{}, false
		}
		return byteRange{start: size - n, end: size - 1}, true
	}

	start, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil || start < 0 || start >= size {
		return byteRange{}, false
	}
	end := size - 1
	if endPart != "" {
		end, err = strconv.ParseInt(endPart, 10, 64)
		if err != nil || end < start {
			return byteRange{}, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return byteRange{start: start, end: end}, true
}
