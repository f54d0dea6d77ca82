package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProviderSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	writeConfigFile(t, path, "callTimeoutSeconds: 15\n")

	provider, err := NewProvider(context.Background(), path, nil)
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, provider.Snapshot().CallTimeout)
}

func TestProviderReloadNotifiesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	writeConfigFile(t, path, "callTimeoutSeconds: 15\n")

	provider, err := NewProvider(ctx, path, nil)
	require.NoError(t, err)
	updates := provider.Watch(ctx)

	writeConfigFile(t, path, "callTimeoutSeconds: 45\n")
	require.NoError(t, provider.Reload())

	select {
	case update := <-updates:
		require.Equal(t, 45*time.Second, update.Config.CallTimeout)
		require.GreaterOrEqual(t, update.Revision, uint64(2))
	case <-time.After(2 * time.Second):
		t.Fatal("no update received after reload")
	}
	require.Equal(t, 45*time.Second, provider.Snapshot().CallTimeout)
}

func TestProviderReloadSkipsUnchangedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	writeConfigFile(t, path, "callTimeoutSeconds: 15\n")

	provider, err := NewProvider(context.Background(), path, nil)
	require.NoError(t, err)

	before := provider.revision.Load()
	require.NoError(t, provider.Reload())
	require.Equal(t, before, provider.revision.Load())
}

func TestProviderReloadKeepsLastGoodConfigOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	writeConfigFile(t, path, "callTimeoutSeconds: 15\n")

	provider, err := NewProvider(context.Background(), path, nil)
	require.NoError(t, err)

	writeConfigFile(t, path, "callTimeoutSeconds: -1\n")
	require.Error(t, provider.Reload())
	require.Equal(t, 15*time.Second, provider.Snapshot().CallTimeout)
}

func TestProviderWatcherPicksUpFileChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "toolgate.yaml")
	writeConfigFile(t, path, "callTimeoutSeconds: 15\n")

	provider, err := NewProvider(ctx, path, nil)
	require.NoError(t, err)
	updates := provider.Watch(ctx)

	// Give fsnotify a moment to establish the directory watch.
	time.Sleep(100 * time.Millisecond)
	writeConfigFile(t, path, "callTimeoutSeconds: 90\n")

	select {
	case update := <-updates:
		require.Equal(t, 90*time.Second, update.Config.CallTimeout)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver the update")
	}
}
