package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Bundle filename layout under the backup root.
const (
	bundlePrefix = "stack-"
	bundleSuffix = ".tar.gz"
)

// BundleName returns the archive filename for a snapshot id.
func BundleName(id string) string {
	return bundlePrefix + id + bundleSuffix
}

// Entry is one member of the retention set.
type Entry struct {
	Path      string
	ID        string
	CreatedAt time.Time
	Size      int64
}

// List returns the bundles under root, newest first. A missing root is
// an empty retention set, not an error.
func List(root string) ([]Entry, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}
	var entries []Entry
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, bundlePrefix) || !strings.HasSuffix(name, bundleSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, bundlePrefix), bundleSuffix)
		created, err := time.Parse("20060102-150405", id)
		if err != nil {
			// Foreign file in the backup root; leave it alone.
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Path:      filepath.Join(root, name),
			ID:        id,
			CreatedAt: created.UTC(),
			Size:      info.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries, nil
}

// Prune deletes all but the newest keep bundles and returns the paths it
// removed. Nothing else under root is ever touched.
func Prune(root string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("retention keep must be > 0, got %d", keep)
	}
	entries, err := List(root)
	if err != nil {
		return nil, err
	}
	if len(entries) <= keep {
		return nil, nil
	}
	var removed []string
	for _, e := range entries[keep:] {
		if err := os.Remove(e.Path); err != nil {
			return removed, fmt.Errorf("prune %s: %w", e.Path, err)
		}
		removed = append(removed, e.Path)
	}
	return removed, nil
}
