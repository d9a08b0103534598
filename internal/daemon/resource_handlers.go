package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shelf/internal/httpcache"
	"shelf/internal/media/chapters"
	"shelf/internal/media/probe"
	"shelf/internal/media/thumbs"
)

// resolveLibraryPath maps a request path segment to a file under the
// library root. The leading-slash clean step keeps traversal sequences
// from escaping the root.
func (d *Daemon) resolveLibraryPath(raw string) (rel, abs string, err error) {
	if strings.TrimSpace(d.cfg.Paths.LibraryDir) == "" {
		return "", "", errors.New("library directory not configured")
	}
	rel = strings.TrimPrefix(path.Clean("/"+raw), "/")
	if rel == "" || rel == "." {
		return "", "", errors.New("resource path required")
	}
	abs = filepath.Join(d.cfg.Paths.LibraryDir, filepath.FromSlash(rel))
	return rel, abs, nil
}

func (s *apiServer) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/resources/")
	kind, rel, _ := strings.Cut(rest, "/")
	switch kind {
	case "file":
		s.serveFile(w, r, rel)
	case "probe":
		s.serveProbe(w, r, rel)
	case "chapters":
		s.serveChapters(w, r, rel)
	case "thumb":
		variant, thumbRel, _ := strings.Cut(rel, "/")
		switch variant {
		case "video":
			s.serveThumb(w, r, thumbRel, thumbs.KindVideo)
		case "audio":
			s.serveThumb(w, r, thumbRel, thumbs.KindAudio)
		default:
			s.writeError(w, http.StatusNotFound, "unknown thumbnail variant")
		}
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource kind")
	}
}

// serveResource is the shared tail of every resource handler: serialize
// producers per key, then let the conditional responder do the rest.
func (s *apiServer) serveResource(w http.ResponseWriter, r *http.Request, key string, opts httpcache.Options, produce func() ([]byte, error)) {
	lock, err := s.daemon.locks.Acquire(r.Context(), key)
	if err != nil {
		// Client went away while queued.
		return
	}
	defer lock.Release()
	s.responder.Respond(w, r, opts, produce)
}

func (s *apiServer) serveFile(w http.ResponseWriter, r *http.Request, raw string) {
	rel, abs, err := s.daemon.resolveLibraryPath(raw)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(abs))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("%s_%d_%d", rel, info.ModTime().UTC().UnixNano(), info.Size())
	opts := httpcache.Options{
		Key:          key,
		LastModified: info.ModTime(),
		MaxAge:       s.maxAge(),
		ContentType:  contentType,
	}
	s.serveResource(w, r, key, opts, func() ([]byte, error) {
		return os.ReadFile(abs)
	})
}

func (s *apiServer) serveProbe(w http.ResponseWriter, r *http.Request, raw string) {
	rel, abs, err := s.daemon.resolveLibraryPath(raw)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	key := probe.CacheKey(rel, info.ModTime(), s.daemon.cfg.Tools.ProbeVersion)
	opts := httpcache.Options{
		Key:          key,
		LastModified: info.ModTime(),
		MaxAge:       s.maxAge(),
		ContentType:  "application/json",
	}
	s.serveResource(w, r, key, opts, func() ([]byte, error) {
		result, err := s.daemon.probes.Inspect(r.Context(), rel, abs)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
}

func (s *apiServer) serveChapters(w http.ResponseWriter, r *http.Request, raw string) {
	rel, abs, err := s.daemon.resolveLibraryPath(raw)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	key := probe.CacheKey(rel+"-chapters", info.ModTime(), s.daemon.cfg.Tools.ThumbnailVersion)
	opts := httpcache.Options{
		Key:          key,
		LastModified: info.ModTime(),
		MaxAge:       s.maxAge(),
		ContentType:  "application/json",
	}
	s.serveResource(w, r, key, opts, func() ([]byte, error) {
		markers, err := s.daemon.chapters.Scan(r.Context(), rel, abs)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Chapters []chapters.Marker `json:"chapters"`
		}{Chapters: markers})
	})
}

func (s *apiServer) serveThumb(w http.ResponseWriter, r *http.Request, raw string, kind thumbs.Kind) {
	rel, abs, err := s.daemon.resolveLibraryPath(raw)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	key := probe.CacheKey(rel+"-thumb-"+string(kind), info.ModTime(), s.daemon.cfg.Tools.ThumbnailVersion)
	opts := httpcache.Options{
		Key:          key,
		LastModified: info.ModTime(),
		MaxAge:       s.maxAge(),
		ContentType:  "image/jpeg",
	}
	s.serveResource(w, r, key, opts, func() ([]byte, error) {
		artifact, err := s.daemon.thumbs.Extract(r.Context(), rel, abs, kind)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(artifact)
	})
}

func (s *apiServer) maxAge() time.Duration {
	return time.Duration(s.daemon.cfg.HTTP.DefaultMaxAge) * time.Second
}
