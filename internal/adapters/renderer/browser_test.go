package renderer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/ports"
)

func TestBrowser_Name(t *testing.T) {
	assert.Equal(t, "renderer-browser", NewBrowser(BrowserConfig{}, nil).Name())
}

func TestBrowser_Check(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "chrome")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "configured executable", path: exe},
		{name: "missing executable", path: filepath.Join(dir, "missing"), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBrowser(BrowserConfig{ExecPath: tt.path}, nil).Check(context.Background())
			if !tt.wantErr {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, domain.IsUnavailable(err))
		})
	}
}

func TestBrowser_Render_LaunchFailure(t *testing.T) {
	b := NewBrowser(BrowserConfig{
		Headless: true,
		ExecPath: filepath.Join(t.TempDir(), "no-such-chrome"),
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	page, err := b.Render(ctx, &ports.RenderRequest{
		URL:               "https://example.com",
		NavigationTimeout: time.Second,
	})
	require.Error(t, err)
	assert.Nil(t, page)

	var renderErr *domain.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "launch", renderErr.Stage)
	assert.Equal(t, "https://example.com", renderErr.URL)
	assert.True(t, domain.IsUnavailable(err))
}

func TestBrowser_Render_LaunchTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a shell script executable")
	}

	// Starts but never announces a DevTools endpoint.
	exe := filepath.Join(t.TempDir(), "hung-chrome")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755))

	b := NewBrowser(BrowserConfig{Headless: true, ExecPath: exe, LaunchTimeout: 200 * time.Millisecond}, nil)

	start := time.Now()
	_, err := b.Render(context.Background(), &ports.RenderRequest{URL: "https://example.com"})
	require.Error(t, err)

	var renderErr *domain.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "launch", renderErr.Stage)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestNewBrowser_Defaults(t *testing.T) {
	b := NewBrowser(BrowserConfig{}, nil)
	assert.Equal(t, DefaultLaunchTimeout, b.cfg.LaunchTimeout)
	assert.Equal(t, DefaultSnapshotTimeout, b.cfg.SnapshotTimeout)

	b = NewBrowser(BrowserConfig{LaunchTimeout: time.Second, SnapshotTimeout: 2 * time.Second}, nil)
	assert.Equal(t, time.Second, b.cfg.LaunchTimeout)
	assert.Equal(t, 2*time.Second, b.cfg.SnapshotTimeout)
}

func TestRunWithin(t *testing.T) {
	t.Run("stage that stops answering is cut off", func(t *testing.T) {
		start := time.Now()
		err := runWithin(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("detached parent still gets a deadline", func(t *testing.T) {
		parent := context.WithoutCancel(context.Background())

		err := runWithin(parent, time.Second, func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)

			return nil
		})
		require.NoError(t, err)
	})

	t.Run("zero means no deadline", func(t *testing.T) {
		err := runWithin(context.Background(), 0, func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.False(t, ok)

			return nil
		})
		require.NoError(t, err)
	})
}

func TestBrowser_AllocatorOptions(t *testing.T) {
	plain := NewBrowser(BrowserConfig{Headless: true}, nil).allocatorOptions("")
	full := NewBrowser(BrowserConfig{Headless: true, NoSandbox: true, ExecPath: "/bin/chrome"}, nil).allocatorOptions("ua")

	assert.Len(t, full, len(plain)+3)
}

func TestWaitForContent_NoSelector(t *testing.T) {
	ready, err := waitForContent(context.Background(), &ports.RenderRequest{})
	require.NoError(t, err)
	assert.True(t, ready)
}
