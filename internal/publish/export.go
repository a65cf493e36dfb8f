package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"narrator/internal/fileutil"
	"narrator/internal/queue"
	"narrator/internal/textutil"
)

// ErrNotReady is returned when exporting an item that has no final video.
var ErrNotReady = errors.New("item is not ready")

// ExportName returns the file stem used for exported artifacts.
func ExportName(item queue.Item) string {
	name := textutil.SanitizeFileName(item.DisplayTitle())
	if name == "" {
		return fmt.Sprintf("item-%d", item.ID)
	}
	return name
}

// Export copies a ready item's video, thumbnail and captions into destDir
// under its title. Each copy is verified by size and checksum. Existing files
// are refused unless overwrite is set. It returns the written paths.
func Export(item queue.Item, destDir string, overwrite bool) ([]string, error) {
	if item.Status != queue.StatusReady || strings.TrimSpace(item.FinalVideoPath) == "" {
		return nil, fmt.Errorf("export item %d: %w (status %s)", item.ID, ErrNotReady, item.Status)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	stem := ExportName(item)
	type pair struct{ src, dst string }
	pairs := []pair{{item.FinalVideoPath, stem + filepath.Ext(item.FinalVideoPath)}}
	if item.ThumbnailPath != "" {
		pairs = append(pairs, pair{item.ThumbnailPath, stem + "-thumbnail" + filepath.Ext(item.ThumbnailPath)})
	}
	if item.CaptionsPath != "" {
		pairs = append(pairs, pair{item.CaptionsPath, stem + filepath.Ext(item.CaptionsPath)})
	}

	for i := range pairs {
		pairs[i].dst = filepath.Join(destDir, pairs[i].dst)
		if overwrite {
			continue
		}
		if _, err := os.Stat(pairs[i].dst); err == nil {
			return nil, fmt.Errorf("export item %d: %s already exists (use --overwrite)", item.ID, pairs[i].dst)
		}
	}

	written := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if err := fileutil.CopyFileVerified(p.src, p.dst); err != nil {
			return written, fmt.Errorf("export %s: %w", filepath.Base(p.src), err)
		}
		written = append(written, p.dst)
	}
	return written, nil
}
