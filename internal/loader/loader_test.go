package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
)

func TestLoadSnapshots(t *testing.T) {
	tests := []struct {
		file        string
		wantNav     int
		wantSidebar int
		wantFooter  bool
	}{
		{file: "v1.yaml", wantNav: 1},
		{file: "v2.json", wantNav: 2, wantSidebar: 2},
		{file: "v3.toml", wantNav: 2, wantSidebar: 1, wantFooter: true},
	}

	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			raw, err := Load(filepath.Join("testdata", tc.file))
			require.NoError(t, err)

			cfg, err := siteconfig.Build(raw)
			require.NoError(t, err)

			assert.Equal(t, "Neo Language", cfg.Title)
			assert.Equal(t, "/logo.png", cfg.Theme.Logo)
			assert.Len(t, cfg.Theme.Nav, tc.wantNav)
			assert.Len(t, cfg.Theme.Sidebar, tc.wantSidebar)
			assert.Equal(t, tc.wantFooter, cfg.Theme.Footer != nil)
		})
	}
}

func TestLoadTOMLDetails(t *testing.T) {
	raw, err := Load(filepath.Join("testdata", "v3.toml"))
	require.NoError(t, err)

	cfg, err := siteconfig.Build(raw)
	require.NoError(t, err)

	require.Len(t, cfg.Head, 1)
	assert.Equal(t, "/favicon.ico", cfg.Head[0].Attributes["href"])
	assert.Equal(t, &siteconfig.LastUpdatedConfig{
		Text: "Updated at",
		FormatOptions: siteconfig.FormatOptions{
			DateStyle: siteconfig.StyleFull,
			TimeStyle: siteconfig.StyleMedium,
		},
	}, cfg.Theme.LastUpdated)
}

func TestLoadDuplicateSidebar(t *testing.T) {
	raw, err := Load(filepath.Join("testdata", "duplicate.yaml"))
	require.NoError(t, err)

	_, err = siteconfig.Build(raw)

	var dup *siteconfig.DuplicateLinkError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "/get-started", dup.Link)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load("site.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load("Makefile")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": `), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestDecodeEmptyDocument(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON, FormatTOML} {
		raw, err := Decode([]byte("  \n"), format)
		require.NoError(t, err)
		assert.Empty(t, raw)
	}

	_, err := Decode([]byte("x"), Format("ini"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"yml": FormatYAML, "YAML": FormatYAML, "json": FormatJSON, " toml ": FormatTOML} {
		got, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Load(filepath.Join("testdata", "v3.toml"))
	require.NoError(t, err)
	cfg, err := siteconfig.Build(raw)
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, cfg, format))

			decoded, err := Decode(buf.Bytes(), format)
			require.NoError(t, err)

			again, err := siteconfig.Build(decoded)
			require.NoError(t, err)
			assert.Equal(t, cfg.Theme.Nav, again.Theme.Nav)
			assert.Equal(t, cfg.Theme.Sidebar, again.Theme.Sidebar)
			assert.Equal(t, cfg.Theme.Footer, again.Theme.Footer)
			assert.Equal(t, cfg.Theme.LastUpdated, again.Theme.LastUpdated)
			assert.Equal(t, cfg.Head, again.Head)
		})
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: one\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 4)
	done := make(chan error, 1)
	watcher := NewWatcher(path, 20*time.Millisecond, zaptest.NewLogger(t))
	go func() {
		done <- watcher.Run(ctx, func() { changes <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("title: two\n"), 0o600))

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	watcher := NewWatcher(filepath.Join(t.TempDir(), "absent", "site.yaml"), 0, nil)
	err := watcher.Run(context.Background(), func() {})
	assert.Error(t, err)
}
