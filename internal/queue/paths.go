package queue

import (
	"fmt"
	"path/filepath"
	"strings"
)

// WorkDir returns the per-item artifact directory rooted at base. Every file an
// item produces lives under it, so concurrent items never share paths.
func (i Item) WorkDir(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || i.ID <= 0 {
		return ""
	}
	return filepath.Join(base, fmt.Sprintf("item-%d", i.ID))
}

// SceneFile names a per-scene artifact, e.g. scene_03.mp3.
func SceneFile(prefix string, number int, ext string) string {
	return fmt.Sprintf("%s_%02d.%s", prefix, number, strings.TrimPrefix(ext, "."))
}
