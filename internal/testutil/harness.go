package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/refinery/internal/app"
	"github.com/vk/refinery/internal/hcl_adapter"
	"github.com/vk/refinery/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness describes one end-to-end run. Files are written under a temp
// root; paths are relative to it. Manifests are loaded from the
// "manifests" subdirectory. Config.InputPath, when set, is also taken
// relative to the root.
type Harness struct {
	Files   map[string]string
	Config  app.Config
	Stdin   string
	Modules []registry.Module
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// Run executes h with a background context.
func Run(t *testing.T, h Harness) *HarnessResult {
	t.Helper()
	return RunWithContext(context.Background(), t, h)
}

// RunWithContext writes the harness files, builds the app with the HCL
// loader and runs it once. Startup panics are recovered into Err.
func RunWithContext(ctx context.Context, t *testing.T, h Harness) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "manifests"), 0o755))
	for name, content := range h.Files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := h.Config
	cfg.ManifestPath = filepath.Join(root, "manifests")
	if cfg.InputPath != "" && cfg.InputPath != app.StdinPath {
		cfg.InputPath = filepath.Join(root, cfg.InputPath)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	appCfg, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	logs := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(out, logs, appCfg, hcl_adapter.NewLoader(), h.Modules...)
	}()

	if os.Getenv("REFINERY_TEST_LOGS") == "true" {
		t.Cleanup(func() { t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String()) })
	}

	if panicErr != nil {
		err := fmt.Errorf("application startup panicked | %v", panicErr)
		if e, ok := panicErr.(error); ok {
			err = fmt.Errorf("application startup panicked | %w", e)
		}
		return &HarnessResult{LogOutput: logs.String(), Err: err}
	}

	runErr := testApp.Run(ctx, strings.NewReader(h.Stdin))
	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       testApp,
	}
}
