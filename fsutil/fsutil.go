// Package fsutil implements the filename conventions shared by the split,
// rename and organize operations: Windows-safe sanitization, collision-safe
// unique naming, and destination path shrinking.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PathLimit is the longest destination path the organizer will produce.
const PathLimit = 240

var forbidden = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	"<", "_", ">", "_", "|", "_", `"`, "_",
)

// Sanitize replaces characters that are invalid in file names with
// underscores and trims trailing dots and spaces. An empty result
// becomes "file".
func Sanitize(name string) string {
	s := forbidden.Replace(name)
	s = strings.TrimRight(s, ". ")
	if s == "" {
		return "file"
	}
	return s
}

// UniqueName returns a name that does not collide with an existing file in
// dir, appending " (2)", " (3)", ... before the extension until unique.
// If dir itself does not exist the name is returned unchanged.
func UniqueName(dir, name string) string {
	if _, err := os.Stat(dir); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}

// MoveFile moves src to dst, falling back to copy-and-remove when a plain
// rename fails (e.g. across filesystems).
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("fsutil: move %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("fsutil: move %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("fsutil: move %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("fsutil: move %s to %s: %w", src, dst, err)
	}
	in.Close()
	return os.Remove(src)
}

// ShrinkName truncates the base of name so that filepath.Join(dir, name)
// stays within limit characters, preserving the extension and appending an
// ellipsis marker. Names that already fit are returned unchanged.
func ShrinkName(dir, name string, limit int) string {
	if utf8.RuneCountInString(filepath.Join(dir, name)) <= limit {
		return name
	}
	const marker = "…"
	ext := filepath.Ext(name)
	base := []rune(strings.TrimSuffix(name, ext))
	budget := limit - utf8.RuneCountInString(dir) - 1 - // separator
		utf8.RuneCountInString(ext) - utf8.RuneCountInString(marker)
	if budget < 1 {
		budget = 1
	}
	if len(base) > budget {
		base = base[:budget]
	}
	return string(base) + marker + ext
}
