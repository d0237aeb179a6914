package config_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stadata-x/stadatax/internal/config"
	"github.com/stadata-x/stadatax/internal/testutil"
)

func TestWatch_SeesAtomicSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := config.NewStore(path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan *config.Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, testutil.NewTestLogger(t), func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	cfg := config.Defaults()
	cfg.APIToken = "watched-token"
	require.NoError(t, store.Save(cfg))

	select {
	case got := <-reloaded:
		assert.Equal(t, "watched-token", got.APIToken)
	case <-ctx.Done():
		t.Fatal("watcher did not observe the save")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store := config.NewStore(filepath.Join(dir, "config.yaml"))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	calls := make(chan struct{}, 8)
	go func() {
		_ = store.Watch(ctx, testutil.NewTestLogger(t), func(*config.Config) {
			calls <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	other := config.NewStore(filepath.Join(dir, "other.yaml"))
	require.NoError(t, other.Save(config.Defaults()))

	<-ctx.Done()
	assert.Empty(t, calls)
}
