package tagger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// acceptedExts are the container formats the batch driver picks up when
// scanning a directory.
var acceptedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DefaultConcurrency is the worker-pool size when none is configured.
var DefaultConcurrency = 4

// Enumerate expands an input path into the ordered list of images to
// process. A file is taken as-is; a directory contributes its immediate
// entries with accepted extensions, sorted lexicographically so runs are
// deterministic regardless of filesystem enumeration order.
func Enumerate(input string) ([]string, error) {
	st, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", input, err)
	}

	if !st.IsDir() {
		return []string{input}, nil
	}

	names, err := godirwalk.ReadDirnames(input, nil)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", input, err)
	}
	sort.Strings(names)

	paths := []string{}
	for _, name := range names {
		if acceptedExts[strings.ToLower(filepath.Ext(name))] {
			paths = append(paths, filepath.Join(input, name))
		}
	}

	klog.Infof("found %d images in %s", len(paths), input)
	return paths, nil
}

// Batch processes paths through the pipeline with a bounded worker pool and
// returns outcomes in input order, independent of completion order. Each
// image's pipeline stays internally sequential; per-image failures land in
// the outcome list, never here.
func (p *Pipeline) Batch(ctx context.Context, paths []string) []Outcome {
	n := p.cfg.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}

	outcomes := make([]Outcome, len(paths))

	var g errgroup.Group
	g.SetLimit(n)
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = p.Process(ctx, path)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

// Run is a whole batch: enumerate, process, report. Individual image
// failures are recorded in the report; only enumeration and report-write
// errors escape.
func (p *Pipeline) Run(ctx context.Context, input string) error {
	paths, err := Enumerate(input)
	if err != nil {
		return err
	}

	outcomes := p.Batch(ctx, paths)
	if err := WriteReport(p.cfg.Output, outcomes); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}
