package session

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sam/internal/jobqueue"
)

// MosaicFileName is the composite written into a session directory. It is
// never treated as a source image.
const MosaicFileName = "mosaic.jpg"

// ErrEmptyName is returned when a session name sanitizes to nothing.
var ErrEmptyName = errors.New("session name is empty after sanitization")

// Session is one unit of work rooted at Path.
type Session struct {
	ID     string
	Path   string
	From   string
	Images []string
	Mode   Mode
	Queue  *jobqueue.Queue

	imagesMu sync.Mutex
}

// Active reports whether the session has been opened. Sessions awaiting a
// name have no ID or directory yet.
func (s *Session) Active() bool {
	return s != nil && s.ID != ""
}

// AddImage appends path to the informational image cache. It is safe to
// call from job goroutines.
func (s *Session) AddImage(path string) {
	if s == nil || path == "" {
		return
	}
	s.imagesMu.Lock()
	defer s.imagesMu.Unlock()
	for _, existing := range s.Images {
		if existing == path {
			return
		}
	}
	s.Images = append(s.Images, path)
}

// ImageCount returns the size of the image cache.
func (s *Session) ImageCount() int {
	if s == nil {
		return 0
	}
	s.imagesMu.Lock()
	defer s.imagesMu.Unlock()
	return len(s.Images)
}

// ScanImages lists the JPEG and PNG files directly inside dir, sorted by
// name. The mosaic output and hidden files (in-flight compression temps)
// are excluded.
func ScanImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.EqualFold(name, MosaicFileName) {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg", ".png":
			images = append(images, filepath.Join(dir, name))
		}
	}
	sort.Strings(images)
	return images, nil
}
