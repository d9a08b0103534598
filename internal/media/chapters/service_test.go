package chapters

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"shelf/internal/config"
	"shelf/internal/resourcecache"
	"shelf/internal/toolrunner"
)

const scanDiagnostic = `Input #0, matroska,webm, from 'movie.mkv':
  Chapter #0:0: start 0.000000, end 600.500000
    Metadata:
      title           : Opening
  Chapter #0:1: start 600.500000, end 1450.000000
    Metadata:
      title           : The Heist
`

type scriptedExecutor struct {
	launches atomic.Int32
	stderr   string
}

func (s *scriptedExecutor) Run(_ context.Context, _ string, _ []string) (toolrunner.Outcome, error) {
	s.launches.Add(1)
	return toolrunner.Outcome{Stderr: []byte(s.stderr)}, nil
}

func newTestService(t *testing.T, exec toolrunner.Executor) *Service {
	t.Helper()
	cache, err := resourcecache.New(t.TempDir())
	if err != nil {
		t.Fatalf("resourcecache.New: %v", err)
	}
	runner, err := toolrunner.NewRunner(cache, map[toolrunner.Class]toolrunner.PoolConfig{
		toolrunner.ClassVideoThumbnail: {Slots: 1, Timeout: time.Minute},
	}, nil, toolrunner.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	cfg := config.Default()
	return NewService(runner, &cfg, nil)
}

func TestScanRunsToolOncePerKey(t *testing.T) {
	exec := &scriptedExecutor{stderr: scanDiagnostic}
	svc := newTestService(t, exec)

	path := filepath.Join(t.TempDir(), "movie.mkv")
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}

	markers, err := svc.Scan(context.Background(), "42", path)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[1].Title != "The Heist" {
		t.Errorf("second marker title = %q", markers[1].Title)
	}

	again, err := svc.Scan(context.Background(), "42", path)
	if err != nil {
		t.Fatalf("Scan (cached): %v", err)
	}
	if len(again) != 2 {
		t.Errorf("cached scan returned %d markers", len(again))
	}
	if got := exec.launches.Load(); got != 1 {
		t.Fatalf("expected 1 launch, got %d", got)
	}
}

func TestScanMissingFileFails(t *testing.T) {
	svc := newTestService(t, &scriptedExecutor{})
	if _, err := svc.Scan(context.Background(), "1", filepath.Join(t.TempDir(), "absent.mkv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
