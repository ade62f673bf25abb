package tagger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"spaces and punctuation", "Sunset  Over/Lake!!", "Sunset_Over_Lake__"},
		{"already clean", "calm-morning_v2.1", "calm-morning_v2.1"},
		{"surrounding whitespace", "  Harbor at Dawn  ", "Harbor_at_Dawn"},
		{"empty", "", ""},
		{"only junk", "///!!!", ""},
		{"truncated to 50", strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{"unicode letters kept", "Café München", "Café_München"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeTitle(tc.title); got != tc.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tc.title, got, tc.want)
			}
		})
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRenameCollisions(t *testing.T) {
	dir := t.TempDir()

	touch(t, filepath.Join(dir, "photo.jpg"))
	touch(t, filepath.Join(dir, "a.JPG"))
	touch(t, filepath.Join(dir, "b.jpg"))

	// photo.jpg already exists, so the first rename lands on photo_1.
	got := Rename(filepath.Join(dir, "a.JPG"), "photo", false)
	if want := filepath.Join(dir, "photo_1.jpg"); got != want {
		t.Errorf("first collision: got %q, want %q", got, want)
	}

	// Extension is lowercased along the way.
	if _, err := os.Stat(filepath.Join(dir, "photo_1.jpg")); err != nil {
		t.Errorf("expected photo_1.jpg on disk: %v", err)
	}

	got = Rename(filepath.Join(dir, "b.jpg"), "photo", false)
	if want := filepath.Join(dir, "photo_2.jpg"); got != want {
		t.Errorf("second collision: got %q, want %q", got, want)
	}
}

func TestRenameFallbacks(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.jpg")
	touch(t, orig)

	// Empty and placeholder titles keep the original name.
	if got := Rename(orig, "", false); got != orig {
		t.Errorf("empty title: got %q, want original", got)
	}
	if got := Rename(orig, Placeholder, false); got != orig {
		t.Errorf("placeholder title: got %q, want original", got)
	}

	// Dry-run computes but does not move.
	if got := Rename(orig, "new name", true); got != orig {
		t.Errorf("dry-run: got %q, want original", got)
	}
	if _, err := os.Stat(orig); err != nil {
		t.Errorf("dry-run moved the file: %v", err)
	}

	// A failed rename (missing source) returns the original path.
	missing := filepath.Join(dir, "gone.jpg")
	if got := Rename(missing, "title", false); got != missing {
		t.Errorf("failed rename: got %q, want original", got)
	}

	// Renaming onto the name it already has is a no-op.
	named := filepath.Join(dir, "keep.jpg")
	touch(t, named)
	if got := Rename(named, "keep", false); got != named {
		t.Errorf("same name: got %q, want original", got)
	}
}
