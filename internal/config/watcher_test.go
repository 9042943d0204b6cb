package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/turnabout/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
discord:
  token: watcher-token
`

const watcherUpdatedYAML = `
server:
  log_level: debug
discord:
  token: watcher-token
`

const watcherInvalidYAML = `
server:
  log_level: bananas
discord:
  token: watcher-token
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

// startWatcher runs w until the test ends.
func startWatcher(t *testing.T, w *config.Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// bumpMtime moves the file's mtime forward so coarse filesystem timestamps
// still register a change.
func bumpMtime(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("log_level = %q, want info", got)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Fatal("expected error for non-existent file")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var (
		mu       sync.Mutex
		old, new *config.Config
	)
	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(cfgPath, func(o, n *config.Config) {
		mu.Lock()
		old, new = o, n
		mu.Unlock()
		select {
		case called <- struct{}{}:
		default:
		}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, cfgPath, watcherUpdatedYAML)
	bumpMtime(t, cfgPath)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if old.Server.LogLevel != config.LogInfo || new.Server.LogLevel != config.LogDebug {
		t.Errorf("callback got %q -> %q, want info -> debug", old.Server.LogLevel, new.Server.LogLevel)
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Error("Current() not updated")
	}
}

func TestWatcher_IgnoresInvalidAndTouchOnly(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{
		"invalid":    watcherInvalidYAML,
		"touch only": watcherValidYAML,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, cfgPath, watcherValidYAML)

			var (
				mu    sync.Mutex
				calls int
			)
			w, err := config.NewWatcher(cfgPath, func(_, _ *config.Config) {
				mu.Lock()
				calls++
				mu.Unlock()
			}, config.WithInterval(20*time.Millisecond))
			if err != nil {
				t.Fatalf("NewWatcher: %v", err)
			}
			startWatcher(t, w)

			writeFile(t, cfgPath, content)
			bumpMtime(t, cfgPath)
			time.Sleep(200 * time.Millisecond)

			mu.Lock()
			defer mu.Unlock()
			if calls != 0 {
				t.Errorf("callback fired %d times", calls)
			}
			if w.Current().Server.LogLevel != config.LogInfo {
				t.Error("Current() changed")
			}
		})
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestLevelApplier(t *testing.T) {
	t.Parallel()

	var level slog.LevelVar
	apply := config.LevelApplier(&level)

	old := baseConfig()
	updated := baseConfig()
	updated.Server.LogLevel = config.LogWarn
	updated.Discord.GuildID = "999"

	apply(old, updated)
	if level.Level() != slog.LevelWarn {
		t.Errorf("level = %v, want warn", level.Level())
	}
}
