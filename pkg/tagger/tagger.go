// Package tagger enriches local images with AI-generated tag metadata.
//
// Each image is resized, sent to a label/web-entity detection service and to
// a generative vision model, the responses are reconciled into a fixed-shape
// record, and the record is optionally written back into the image's IPTC
// and XMP blocks. Results are collected into a JSON report.
package tagger

import (
	"encoding/json"
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

// Placeholder is substituted for any field the generative model did not fill.
var Placeholder = "Not specified"

// Config holds configuration for a tagging run.
type Config struct {
	CredentialsPath string
	Project         string
	Model           string

	MaxDimension int
	Concurrency  int

	Rename        bool
	WriteMetadata bool
	Overwrite     bool
	DryRun        bool

	BackupDir string
	Output    string
}

// EncodedImage is a transient encoded payload ready for remote analysis.
type EncodedImage struct {
	Data []byte
	MIME string
}

// Detection holds the advisory output of the label detection service.
type Detection struct {
	Labels      []string
	WebEntities []string
}

// Record is the reconciled tag metadata for one image. After reconciliation
// every field is populated, with Placeholder standing in for anything the
// model omitted.
type Record struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	MainGenre      string   `json:"main_genre"`
	SecondaryGenre string   `json:"secondary_genre"`
	Keywords       []string `json:"keywords"`
}

// ImageResult is the per-image entry of a successful pipeline run.
type ImageResult struct {
	OriginalFile    string   `json:"original_file"`
	NewFile         string   `json:"new_file,omitempty"`
	Path            string   `json:"path"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MainGenre       string   `json:"main_genre"`
	SecondaryGenre  string   `json:"secondary_genre"`
	Keywords        []string `json:"keywords"`
	MetadataWritten bool     `json:"metadata_written"`
	ProcessingTime  float64  `json:"processing_time"`
}

// Failure is the per-image entry emitted when the pipeline fails outright.
type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Outcome is the tagged result of one pipeline run: exactly one of Result
// or Failure is set. It flattens to the plain report shape when serialized.
type Outcome struct {
	Result  *ImageResult
	Failure *Failure
}

// MarshalJSON flattens the outcome to either the full result object or the
// {file, error} failure object.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Failure != nil {
		return json.Marshal(o.Failure)
	}
	return json.Marshal(o.Result)
}

// WriteReport serializes outcomes, in input order, as a JSON array.
func WriteReport(path string, outcomes []Outcome) error {
	bs, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := os.WriteFile(path, bs, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	klog.Infof("wrote %d results to %s", len(outcomes), path)
	return nil
}
