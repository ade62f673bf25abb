// phototag tags images with AI-generated titles, descriptions, genres, and
// keywords using Cloud Vision and Gemini, then writes the tags into the
// files themselves and into a JSON report.
package main

import (
	"context"
	"flag"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"k8s.io/klog/v2"

	"phototag/pkg/tagger"
)

var (
	credentials = flag.String("credentials", "", "path to a GCP service account JSON file")
	project     = flag.String("project", "", "GCP project ID (uses Vertex AI; otherwise GOOGLE_AI_API_KEY)")
	model       = flag.String("model", tagger.DefaultModel, "generative model to describe images with")
	output      = flag.String("output", "results.json", "path of the JSON report")
	maxDim      = flag.Int("max-dim", tagger.DefaultMaxDimension, "maximum image dimension sent for analysis")
	concurrency = flag.Int("concurrency", tagger.DefaultConcurrency, "images processed in parallel")
	rename      = flag.Bool("rename", true, "rename files after their generated title")
	writeMeta   = flag.Bool("write-metadata", true, "embed tags into IPTC/XMP metadata")
	overwrite   = flag.Bool("o", false, "overwrite existing tags")
	dryRun      = flag.Bool("n", false, "dry-run mode, don't rename or tag things")
	backupDir   = flag.String("backup-dir", "", "copy originals here before tagging")
	watchFlag   = flag.Bool("watch", false, "watch the input directory and re-tag on changes")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(flag.Args()) != 1 {
		klog.Exitf("usage: %s [flags] <image-or-directory>", os.Args[0])
	}
	input := flag.Arg(0)

	if *credentials != "" {
		// The genai Vertex backend picks credentials up from the environment.
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", *credentials)
	}

	c := &tagger.Config{
		CredentialsPath: *credentials,
		Project:         *project,
		Model:           *model,
		Output:          *output,
		MaxDimension:    *maxDim,
		Concurrency:     *concurrency,
		Rename:          *rename,
		WriteMetadata:   *writeMeta,
		Overwrite:       *overwrite,
		DryRun:          *dryRun,
		BackupDir:       *backupDir,
	}

	if c.BackupDir != "" {
		if err := os.MkdirAll(c.BackupDir, 0o755); err != nil {
			klog.Exitf("backup dir: %v", err)
		}
	}

	ctx := context.Background()
	p, err := tagger.New(ctx, c)
	if err != nil {
		klog.Exitf("setup failed: %v", err)
	}
	defer p.Close()

	if err := p.Run(ctx, input); err != nil {
		klog.Exitf("run failed: %v", err)
	}

	if *watchFlag {
		if err := tagger.Watch(ctx, p, input); err != nil {
			klog.Exitf("watch failed: %v", err)
		}
	}
}
