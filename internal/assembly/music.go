package assembly

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"narrator/internal/textutil"
)

var bedExtensions = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".aac": {}, ".wav": {}, ".ogg": {}, ".flac": {}, ".opus": {},
}

func isBed(name string) bool {
	_, ok := bedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SelectBed picks a music bed for style: <dir>/<style>.<ext>, then the first
// bed inside <dir>/<style>/, then the first bed anywhere under dir. An empty
// result with a nil error means no bed exists.
func SelectBed(dir, style string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", nil
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	if style = textutil.SanitizeToken(style); style != "unknown" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() && isBed(name) && strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), style) {
				return filepath.Join(dir, name), nil
			}
		}
		if bed, err := firstBed(filepath.Join(dir, style)); err != nil || bed != "" {
			return bed, err
		}
	}
	return firstBed(dir)
}

func firstBed(root string) (string, error) {
	var beds []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && isBed(d.Name()) {
			beds = append(beds, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(beds) == 0 {
		return "", nil
	}
	sort.Strings(beds)
	return beds[0], nil
}
