package tagger

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// tagFormat is one embedded-metadata flavor: a name, an applicability
// predicate over the file extension, and the field mapping. Formats are
// attempted independently so one flavor's failure never blocks another.
type tagFormat struct {
	name    string
	applies func(ext string) bool
	set     func(fm *exiftool.FileMetadata, r Record)
}

// tagFormats is evaluated in order for every file.
var tagFormats = []tagFormat{
	{
		// IPTC IIM is a JPEG-era block; PNG has nowhere to put it.
		name: "iptc",
		applies: func(ext string) bool {
			return ext == ".jpg" || ext == ".jpeg"
		},
		set: func(fm *exiftool.FileMetadata, r Record) {
			fm.SetString("IPTC:ObjectName", r.Title)
			fm.SetString("IPTC:Caption-Abstract", r.Description)
			fm.SetStrings("IPTC:Keywords", r.Keywords)
			fm.SetString("IPTC:Category", r.MainGenre)
			fm.SetStrings("IPTC:SupplementalCategories", []string{r.SecondaryGenre})
		},
	},
	{
		// XMP travels in every container we accept.
		name:    "xmp",
		applies: func(string) bool { return true },
		set: func(fm *exiftool.FileMetadata, r Record) {
			fm.SetString("XMP-dc:Title", r.Title)
			fm.SetString("XMP-dc:Description", r.Description)
			fm.SetStrings("XMP-dc:Subject", r.Keywords)
			fm.SetString("XMP-photoshop:Category", r.MainGenre)
			fm.SetStrings("XMP-photoshop:SupplementalCategories", []string{r.SecondaryGenre})
		},
	},
}

// formatsFor returns the tag formats applicable to a path.
func formatsFor(path string) []tagFormat {
	ext := strings.ToLower(filepath.Ext(path))
	fs := []tagFormat{}
	for _, f := range tagFormats {
		if f.applies(ext) {
			fs = append(fs, f)
		}
	}
	return fs
}

// MetadataWriter embeds reconciled records into image files via a single
// long-lived exiftool handle.
type MetadataWriter struct {
	et *exiftool.Exiftool
}

func NewMetadataWriter() (*MetadataWriter, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &MetadataWriter{et: et}, nil
}

func (w *MetadataWriter) Close() {
	if err := w.et.Close(); err != nil {
		klog.Errorf("exiftool close: %v", err)
	}
}

// WriteOutcome records per-format write success. Formats whose predicate
// rejected the file never appear in it.
type WriteOutcome map[string]bool

// OK reports whether every attempted format succeeded. Skipped formats do
// not count against success.
func (o WriteOutcome) OK() bool {
	for _, ok := range o {
		if !ok {
			return false
		}
	}
	return true
}

// Write embeds the record into every applicable tag format. Each format gets
// its own write so a failure in one is logged and the next still runs.
func (w *MetadataWriter) Write(path string, r Record, dryRun bool) WriteOutcome {
	out := WriteOutcome{}
	for _, f := range formatsFor(path) {
		klog.V(1).Infof("writing %s metadata to %s", f.name, path)
		if dryRun {
			out[f.name] = true
			continue
		}

		fm := exiftool.EmptyFileMetadata()
		fm.File = path
		f.set(&fm, r)

		fms := []exiftool.FileMetadata{fm}
		w.et.WriteMetadata(fms)
		if fms[0].Err != nil {
			klog.Errorf("%s write failed for %s: %v", f.name, path, fms[0].Err)
			out[f.name] = false
			continue
		}
		out[f.name] = true
	}
	return out
}

// Tagged reports whether the file already carries a generated title, so
// runs can skip work unless overwriting was requested.
func (w *MetadataWriter) Tagged(path string) bool {
	_, ok := w.TaggedTitle(path)
	return ok
}

// TaggedTitle returns the file's embedded title, if one is set.
func (w *MetadataWriter) TaggedTitle(path string) (string, bool) {
	fms := w.et.ExtractMetadata(path)
	if len(fms) == 0 || fms[0].Err != nil {
		return "", false
	}

	title, err := fms[0].GetString("Title")
	if err != nil || title == "" || title == Placeholder {
		return "", false
	}
	return title, true
}
