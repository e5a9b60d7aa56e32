package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finburn/internal/logging"
)

const page = `<html><body><div class="bg-card"><h3>hk-1</h3>价格: HK$10/月 剩余天数: 3</div></body></html>`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dash.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	doc, err := NewLoader(nil, logging.Discard()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hk-1", doc.Find("h3").Text())
}

func TestLoadMissing(t *testing.T) {
	_, err := NewLoader(nil, logging.Discard()).Load(context.Background(), filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewLoader(nil, logging.Discard()).Load(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadDirectoryPicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.html")
	fresh := filepath.Join(dir, "b.htm")
	require.NoError(t, os.WriteFile(old, []byte(`<h3>old</h3>`), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte(`<h3>new</h3>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	snaps, err := ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, fresh, snaps[0].Path)

	doc, err := NewLoader(nil, logging.Discard()).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Find("h3").Text())
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, err := NewLoader(nil, logging.Discard()).Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrEmptyDir)
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
		assert.Contains(t, r.Header.Get("User-Agent"), "finburn")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	l := NewLoader(NewClient("session=abc", time.Second), logging.Discard())
	doc, err := l.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(".bg-card").Length())
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrUnexpectedStatus},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewClient("", time.Second).Get(context.Background(), srv.URL)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}
}

func TestClientBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxBodySize+10)))
	}))
	defer srv.Close()

	_, err := NewClient("", 5*time.Second).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://status.example.com"))
	assert.True(t, IsURL("HTTP://x"))
	assert.False(t, IsURL("/tmp/page.html"))
}

func TestLiveServesLatestSnapshot(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := hits.Add(1)
		_, _ = w.Write([]byte(strings.Repeat(`<div class="bg-card"></div>`, int(n))))
	}))
	defer srv.Close()

	live := NewLive(NewLoader(nil, logging.Discard()), srv.URL)
	ctx := context.Background()

	doc, err := live.Page(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(".bg-card").Length())

	// Page does not refetch once a snapshot exists.
	doc, err = live.Page(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(".bg-card").Length())
	assert.Equal(t, int32(1), hits.Load())

	_, err = live.Poll(ctx)
	require.NoError(t, err)
	doc, _ = live.Page(ctx)
	assert.Equal(t, 2, doc.Find(".bg-card").Length())
}

func TestStatic(t *testing.T) {
	_, err := Static{}.Page(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}
