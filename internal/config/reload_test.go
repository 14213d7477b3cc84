// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLanguage(t *testing.T, path, lang string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("subtitles:\n  language: "+lang+"\n"), 0o600))
}

func TestConfigHolder_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeLanguage(t, path, "eng")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader, path)
	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	writeLanguage(t, path, "dan")
	require.NoError(t, holder.Reload(context.Background()))

	assert.Equal(t, "dan", holder.Get().Subtitles.Language)
	select {
	case got := <-ch:
		assert.Equal(t, "dan", got.Subtitles.Language)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestConfigHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeLanguage(t, path, "eng")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader, path)

	var outcomes []error
	holder.SetReloadHook(func(err error) { outcomes = append(outcomes, err) })

	require.NoError(t, os.WriteFile(path, []byte("unknownKey: 1\n"), 0o600))
	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, "eng", holder.Get().Subtitles.Language)

	writeLanguage(t, path, "swe")
	require.NoError(t, holder.Reload(context.Background()))
	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0])
	assert.NoError(t, outcomes[1])
}

func TestConfigHolder_ListenerNeverBlocks(t *testing.T) {
	holder := NewConfigHolder(Defaults(), NewLoader("", ""), "")
	full := make(chan AppConfig) // unbuffered and never read
	holder.RegisterListener(full)

	done := make(chan struct{})
	go func() {
		_ = holder.Reload(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on a slow listener")
	}
}

func TestConfigHolder_WatcherDisabledWithoutPath(t *testing.T) {
	holder := NewConfigHolder(Defaults(), NewLoader("", ""), "")
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeLanguage(t, path, "eng")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewConfigHolder(initial, loader, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))

	writeLanguage(t, path, "fin")

	assert.Eventually(t, func() bool {
		return holder.Get().Subtitles.Language == "fin"
	}, 5*time.Second, 50*time.Millisecond)
}
