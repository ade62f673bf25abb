package tagger

import "testing"

func TestFormatsFor(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"photo.jpg", []string{"iptc", "xmp"}},
		{"photo.JPEG", []string{"iptc", "xmp"}},
		// PNG has no IPTC block: it must be skipped, not attempted.
		{"photo.png", []string{"xmp"}},
		{"photo", []string{"xmp"}},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			fs := formatsFor(tc.path)
			if len(fs) != len(tc.want) {
				t.Fatalf("formatsFor(%q) returned %d formats, want %d", tc.path, len(fs), len(tc.want))
			}
			for i, f := range fs {
				if f.name != tc.want[i] {
					t.Errorf("formatsFor(%q)[%d] = %q, want %q", tc.path, i, f.name, tc.want[i])
				}
			}
		})
	}
}

func TestWriteOutcomeOK(t *testing.T) {
	tests := []struct {
		name string
		o    WriteOutcome
		want bool
	}{
		{"nothing attempted", WriteOutcome{}, true},
		{"all succeeded", WriteOutcome{"iptc": true, "xmp": true}, true},
		{"one failed", WriteOutcome{"iptc": false, "xmp": true}, false},
		// A skipped format is absent, not false: only the attempted write
		// decides success.
		{"skipped format ignored", WriteOutcome{"xmp": true}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.o.OK(); got != tc.want {
				t.Errorf("OK() = %v, want %v", got, tc.want)
			}
		})
	}
}
