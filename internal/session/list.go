package session

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Directory describes one session directory under the work root.
type Directory struct {
	Name    string
	Path    string
	ModTime time.Time
	Images  int
}

// ListDirectories returns the directories directly under workDir, newest
// first. Ties are broken by name.
func ListDirectories(workDir string) ([]Directory, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, err
	}
	dirs := make([]Directory, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(workDir, entry.Name())
		images, _ := ScanImages(path)
		dirs = append(dirs, Directory{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Images:  len(images),
		})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		if dirs[i].ModTime.Equal(dirs[j].ModTime) {
			return dirs[i].Name < dirs[j].Name
		}
		return dirs[i].ModTime.After(dirs[j].ModTime)
	})
	return dirs, nil
}
