package tagger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Watch re-runs the batch whenever images in the input directory change.
// Files already carrying a generated title are skipped on re-runs unless
// Overwrite is set, so steady-state passes are cheap. Blocks until the
// context is canceled.
func Watch(ctx context.Context, p *Pipeline, input string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(input); err != nil {
		return fmt.Errorf("watch %s: %w", input, err)
	}

	klog.Infof("watching %s ...", input)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !acceptedExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				klog.Infof("change detected: %s", event)
				if err := p.Run(ctx, input); err != nil {
					klog.Errorf("re-run failed: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
