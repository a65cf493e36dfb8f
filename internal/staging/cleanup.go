package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"narrator/internal/logging"
)

// WorkDirPrefix names per-item directories, e.g. item-12.
const WorkDirPrefix = "item-"

// CleanupResult contains the outcome of a cleanup pass.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one item work directory.
type DirInfo struct {
	ItemID  int64
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ParseWorkDirID extracts the item ID from a work directory name.
func ParseWorkDirID(name string) (int64, bool) {
	if !strings.HasPrefix(name, WorkDirPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(name, WorkDirPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CleanOrphaned removes item work directories whose ID is not in active.
// Directories that do not follow the item-N layout are left alone.
func CleanOrphaned(ctx context.Context, stagingDir string, active map[int64]struct{}, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		id, ok := ParseWorkDirID(entry.Name())
		if !ok {
			continue
		}
		if _, live := active[id]; live {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove orphaned work directory",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed orphaned work directory",
			logging.String("path", dirPath),
			logging.Int64("item_id", id),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}

	return result
}

// ListWorkDirs returns the item work directories under stagingDir ordered by
// item ID. A missing staging directory yields an empty list.
func ListWorkDirs(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, ok := ParseWorkDirID(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			ItemID:  id,
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].ItemID < dirs[j].ItemID })
	return dirs, nil
}

// TotalSize sums the sizes of dirs.
func TotalSize(dirs []DirInfo) int64 {
	var total int64
	for _, dir := range dirs {
		total += dir.Size
	}
	return total
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		return nil
	})
	return size, err
}
