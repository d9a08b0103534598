package probe

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"shelf/internal/config"
	"shelf/internal/resourcecache"
	"shelf/internal/toolrunner"
)

type scriptedExecutor struct {
	launches atomic.Int32
	lastArgs []string
	stdout   string
}

func (s *scriptedExecutor) Run(_ context.Context, _ string, args []string) (toolrunner.Outcome, error) {
	s.launches.Add(1)
	s.lastArgs = args
	return toolrunner.Outcome{Stdout: []byte(s.stdout)}, nil
}

func newTestService(t *testing.T, exec toolrunner.Executor) *Service {
	t.Helper()
	cache, err := resourcecache.New(t.TempDir())
	if err != nil {
		t.Fatalf("resourcecache.New: %v", err)
	}
	runner, err := toolrunner.NewRunner(cache, map[toolrunner.Class]toolrunner.PoolConfig{
		toolrunner.ClassProbe: {Slots: 2, Timeout: time.Minute},
	}, nil, toolrunner.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	cfg := config.Default()
	return NewService(runner, &cfg, nil)
}

func writeMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return path
}

func TestInspectRunsToolOncePerKey(t *testing.T) {
	exec := &scriptedExecutor{stdout: samplePayload}
	svc := newTestService(t, exec)
	path := writeMediaFile(t, "movie.mkv")

	first, err := svc.Inspect(context.Background(), "42", path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if first.VideoStreamCount() != 1 {
		t.Errorf("video streams = %d", first.VideoStreamCount())
	}

	second, err := svc.Inspect(context.Background(), "42", path)
	if err != nil {
		t.Fatalf("Inspect (cached): %v", err)
	}
	if second.Format.Filename != first.Format.Filename {
		t.Error("cached result differs from fresh result")
	}
	if got := exec.launches.Load(); got != 1 {
		t.Fatalf("expected 1 launch, got %d", got)
	}
}

func TestInspectReprobesAfterSourceEdit(t *testing.T) {
	exec := &scriptedExecutor{stdout: samplePayload}
	svc := newTestService(t, exec)
	path := writeMediaFile(t, "movie.mkv")

	if _, err := svc.Inspect(context.Background(), "42", path); err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	// Editing the file moves its mtime, which recomputes the key.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := svc.Inspect(context.Background(), "42", path); err != nil {
		t.Fatalf("Inspect after edit: %v", err)
	}
	if got := exec.launches.Load(); got != 2 {
		t.Fatalf("expected re-probe after edit, launches = %d", got)
	}
}

func TestBuildArgsAppliesDeepScanOnlyToDiscImages(t *testing.T) {
	exec := &scriptedExecutor{stdout: samplePayload}
	svc := newTestService(t, exec)

	iso := writeMediaFile(t, "disc.iso")
	if _, err := svc.Inspect(context.Background(), "1", iso); err != nil {
		t.Fatalf("Inspect iso: %v", err)
	}
	if !slices.Contains(exec.lastArgs, "-analyzeduration") {
		t.Errorf("deep scan args missing for iso: %v", exec.lastArgs)
	}

	mkv := writeMediaFile(t, "movie.mkv")
	if _, err := svc.Inspect(context.Background(), "2", mkv); err != nil {
		t.Fatalf("Inspect mkv: %v", err)
	}
	if slices.Contains(exec.lastArgs, "-analyzeduration") {
		t.Errorf("deep scan args applied to mkv: %v", exec.lastArgs)
	}
}

func TestInspectMissingFileFails(t *testing.T) {
	svc := newTestService(t, &scriptedExecutor{stdout: samplePayload})
	if _, err := svc.Inspect(context.Background(), "1", filepath.Join(t.TempDir(), "absent.mkv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
