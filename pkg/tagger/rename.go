package tagger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"k8s.io/klog/v2"
)

// maxBaseLength bounds the sanitized filename stem.
var maxBaseLength = 50

// SanitizeTitle converts a generated title into a safe filename stem.
// Whitespace runs collapse to a single underscore; any character that is not
// alphanumeric, hyphen, underscore, or period becomes an underscore; the
// result is capped at maxBaseLength runes. Returns "" for titles with no
// usable content.
func SanitizeTitle(title string) string {
	base := strings.Join(strings.Fields(title), "_")

	base = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		switch r {
		case '-', '_', '.':
			return r
		}
		return '_'
	}, base)

	rs := []rune(base)
	if len(rs) > maxBaseLength {
		base = string(rs[:maxBaseLength])
	}
	base = strings.TrimSpace(base)

	if strings.Trim(base, "_.") == "" {
		return ""
	}
	return base
}

// Rename moves the image to a title-derived filename in the same directory,
// returning the new path. Collisions append _1, _2, ... with existence
// re-checked after every increment. Any failure keeps the original name:
// the pipeline carries on as if no rename was requested.
func Rename(path string, title string, dryRun bool) string {
	base := SanitizeTitle(title)
	if base == "" || base == SanitizeTitle(Placeholder) {
		klog.V(1).Infof("no usable title for %s, keeping name", path)
		return path
	}

	dir := filepath.Dir(path)
	ext := strings.ToLower(filepath.Ext(path))

	dest := filepath.Join(dir, base+ext)
	if dest == path {
		return path
	}

	for n := 1; ; n++ {
		if _, err := os.Stat(dest); err != nil {
			break
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}

	klog.Infof("rename %s -> %s", path, dest)
	if dryRun {
		return path
	}

	if err := os.Rename(path, dest); err != nil {
		klog.Warningf("rename %s failed, keeping name: %v", path, err)
		return path
	}

	return dest
}
