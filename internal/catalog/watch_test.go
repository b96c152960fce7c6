package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic_advisor/internal/models"
)

func TestWatcherReloadsOnNewCatalog(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()

	reloaded := make(chan error, 8)
	w := NewWatcher(dir, registry, func(_ map[string][]models.Diagnostic, err error) {
		select {
		case reloaded <- err:
		default:
		}
	})
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	tmp := filepath.Join(dir, "tp01.part")
	require.NoError(t, os.WriteFile(tmp, []byte(smallYAML), 0o644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "tp01.yaml")))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	_, ok := registry.Get("TP01")
	assert.True(t, ok)

	require.NoError(t, os.Remove(filepath.Join(dir, "tp01.yaml")))
	assert.Eventually(t, func() bool {
		_, ok := registry.Get("TP01")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent"), NewRegistry(), nil)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
