// Package source loads the dashboard page from a file, a directory of
// saved pages, or an http(s) URL.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finburn/internal/logging"
)

var (
	// ErrNotFound indicates the location does not exist.
	ErrNotFound = errors.New("source: page not found")
	// ErrEmptyDir indicates a directory with no saved pages.
	ErrEmptyDir = errors.New("source: no saved pages in directory")
)

// IsURL reports whether location is fetched over HTTP.
func IsURL(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Loader resolves locations to parsed documents.
type Loader struct {
	Client *Client
	Log    *logrus.Entry
}

// NewLoader returns a loader using client for URLs.
func NewLoader(client *Client, log *logrus.Logger) *Loader {
	if client == nil {
		client = NewClient("", 0)
	}
	return &Loader{Client: client, Log: logging.For(log, logging.ComponentSource)}
}

// Load reads location and parses it. A directory resolves to its newest
// saved page.
func (l *Loader) Load(ctx context.Context, location string) (*goquery.Document, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrNotFound)
	}

	var body []byte
	if IsURL(location) {
		b, err := l.Client.Get(ctx, location)
		if err != nil {
			return nil, err
		}
		body = b
	} else {
		path, err := resolvePath(location)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		body = b
		location = path
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", location, err)
	}
	if l.Log != nil {
		l.Log.WithFields(logrus.Fields{"location": location, "bytes": len(body)}).Debug("page loaded")
	}
	return doc, nil
}

func resolvePath(location string) (string, error) {
	info, err := os.Stat(location)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return location, nil
	}

	snaps, err := ScanDir(location)
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", location, err)
	}
	if len(snaps) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDir, location)
	}
	return snaps[0].Path, nil
}

// Static serves one already-loaded document.
type Static struct {
	Doc *goquery.Document
}

// Page returns the document.
func (s Static) Page(context.Context) (*goquery.Document, error) {
	if s.Doc == nil {
		return nil, ErrNotFound
	}
	return s.Doc, nil
}

// Live re-reads a location on every Poll and serves the latest snapshot
// from Page, so the pipeline and the change observer see the same page.
type Live struct {
	loader   *Loader
	location string

	mu      sync.RWMutex
	current *goquery.Document
}

// NewLive returns a live source over location.
func NewLive(loader *Loader, location string) *Live {
	return &Live{loader: loader, location: location}
}

// Location is the page being watched.
func (l *Live) Location() string { return l.location }

// Poll fetches a fresh snapshot and makes it current.
func (l *Live) Poll(ctx context.Context) (*goquery.Document, error) {
	doc, err := l.loader.Load(ctx, l.location)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = doc
	l.mu.Unlock()
	return doc, nil
}

// Page returns the latest snapshot, polling once if there is none yet.
func (l *Live) Page(ctx context.Context) (*goquery.Document, error) {
	l.mu.RLock()
	doc := l.current
	l.mu.RUnlock()
	if doc != nil {
		return doc, nil
	}
	return l.Poll(ctx)
}
