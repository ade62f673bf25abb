package tagger

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Pipeline runs one image through normalize, detect, describe, reconcile,
// rename, and metadata write-back. Remote clients are built once and shared
// across the whole run.
type Pipeline struct {
	cfg       *Config
	detector  Detector
	describer Describer
	meta      *MetadataWriter

	// renameMu serializes the existence-check-then-rename step so parallel
	// workers can't race two colliding titles into the same name.
	renameMu sync.Mutex
}

// New builds a pipeline and its remote clients. Client construction errors
// are fatal here; per-image failures never are.
func New(ctx context.Context, cfg *Config) (*Pipeline, error) {
	detector, err := NewVisionDetector(ctx, cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	describer, err := NewGeminiDescriber(ctx, cfg.Project, apiKeyFromEnv(), cfg.Model)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, detector: detector, describer: describer}

	if cfg.WriteMetadata {
		p.meta, err = NewMetadataWriter()
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Close releases the exiftool handle, if any.
func (p *Pipeline) Close() {
	if p.meta != nil {
		p.meta.Close()
	}
}

// Process runs the full pipeline for one image. Stage failures fall back per
// stage (raw bytes, empty detection, empty description, original filename,
// metadata_written=false); only an error with no fallback left, such as an
// unreadable input file, produces a Failure.
func (p *Pipeline) Process(ctx context.Context, path string) Outcome {
	start := time.Now()
	klog.Infof("processing %s", path)

	if p.meta != nil && !p.cfg.Overwrite {
		if p.meta.Tagged(path) {
			klog.Infof("%s already tagged, skipping (use -o to overwrite)", path)
			return p.skipped(path, start)
		}
	}

	img, err := Normalize(path, p.cfg.MaxDimension)
	if err != nil {
		klog.Errorf("processing %s failed: %v", path, err)
		return Outcome{Failure: &Failure{File: filepath.Base(path), Error: err.Error()}}
	}

	det, err := p.detector.Detect(ctx, img)
	if err != nil {
		// Detection is advisory: carry on without it.
		klog.Warningf("detection failed for %s: %v", path, err)
		det = Detection{}
	}

	raw, err := p.describer.Describe(ctx, img, det)
	if err != nil {
		klog.Errorf("describe failed for %s: %v", path, err)
		raw = ""
	}

	rec := Reconcile(raw)
	mergeDetection(&rec, det)

	final := path
	if p.cfg.Rename {
		p.renameMu.Lock()
		final = Rename(path, rec.Title, p.cfg.DryRun)
		p.renameMu.Unlock()
	}

	written := false
	if p.meta != nil {
		p.backup(final)
		written = p.meta.Write(final, rec, p.cfg.DryRun).OK()
	}

	elapsed := time.Since(start).Seconds()
	klog.Infof("processed %s in %.2fs", path, elapsed)

	res := &ImageResult{
		OriginalFile:    filepath.Base(path),
		Path:            absPath(final),
		Title:           rec.Title,
		Description:     rec.Description,
		MainGenre:       rec.MainGenre,
		SecondaryGenre:  rec.SecondaryGenre,
		Keywords:        rec.Keywords,
		MetadataWritten: written,
		ProcessingTime:  elapsed,
	}
	if final != path {
		res.NewFile = filepath.Base(final)
	}

	return Outcome{Result: res}
}

// skipped emits a minimal result for an already-tagged file.
func (p *Pipeline) skipped(path string, start time.Time) Outcome {
	title, _ := p.meta.TaggedTitle(path)
	return Outcome{Result: &ImageResult{
		OriginalFile:    filepath.Base(path),
		Path:            absPath(path),
		Title:           title,
		Description:     Placeholder,
		MainGenre:       Placeholder,
		SecondaryGenre:  Placeholder,
		Keywords:        []string{},
		MetadataWritten: false,
		ProcessingTime:  time.Since(start).Seconds(),
	}}
}

// backup preserves the original file before exiftool rewrites it in place.
func (p *Pipeline) backup(path string) {
	if p.cfg.BackupDir == "" || p.cfg.DryRun {
		return
	}

	dest := filepath.Join(p.cfg.BackupDir, filepath.Base(path))
	if err := copy.Copy(path, dest); err != nil {
		klog.Warningf("backup of %s failed: %v", path, err)
	}
}

// mergeDetection fills placeholder fields from the advisory detection data
// and folds the top labels into the keyword list.
func mergeDetection(r *Record, det Detection) {
	if r.Title == Placeholder && len(det.Labels) > 0 {
		r.Title = strings.Join(firstN(det.Labels, 3), " ")
	}

	if r.Description == Placeholder && len(det.WebEntities) > 0 {
		r.Description = strings.Join(firstN(det.WebEntities, 3), " ")
	}

	for _, l := range firstN(det.Labels, 3) {
		seen := false
		for _, k := range r.Keywords {
			if strings.EqualFold(k, l) {
				seen = true
				break
			}
		}
		if !seen {
			r.Keywords = append(r.Keywords, l)
		}
	}
}

func firstN(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
