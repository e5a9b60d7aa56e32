package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot is a saved copy of a dashboard page found on disk.
type Snapshot struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// ScanDir finds saved pages (.html, .htm) directly under dir, newest first.
// Unreadable entries are skipped.
func ScanDir(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".html" && ext != ".htm" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].ModTime.Equal(snaps[j].ModTime) {
			return snaps[i].ModTime.After(snaps[j].ModTime)
		}
		return snaps[i].Path > snaps[j].Path
	})
	return snaps, nil
}
