package tagger

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
	"k8s.io/klog/v2"
)

// maxDetections caps how many labels and web entities are requested per image.
var maxDetections = int64(20)

// Detector returns advisory labels and web entities for an image. The
// pipeline treats detection as optional context: a detector error is logged
// and an empty Detection is used instead.
type Detector interface {
	Detect(ctx context.Context, img EncodedImage) (Detection, error)
}

// visionDetector calls the Cloud Vision images.annotate endpoint.
type visionDetector struct {
	svc *vision.Service
}

// NewVisionDetector builds a Detector backed by the Cloud Vision API. The
// service handle is long-lived and shared across all images in a run.
func NewVisionDetector(ctx context.Context, credentialsPath string) (Detector, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision service: %w", err)
	}

	return &visionDetector{svc: svc}, nil
}

func (d *visionDetector) Detect(ctx context.Context, img EncodedImage) (Detection, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(img.Data)},
				Features: []*vision.Feature{
					{Type: "LABEL_DETECTION", MaxResults: maxDetections},
					{Type: "WEB_DETECTION", MaxResults: maxDetections},
				},
			},
		},
	}

	res, err := d.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Detection{}, fmt.Errorf("annotate: %w", err)
	}

	if len(res.Responses) == 0 {
		return Detection{}, fmt.Errorf("annotate: empty response")
	}

	r := res.Responses[0]
	if r.Error != nil {
		return Detection{}, fmt.Errorf("annotate: %s (code %d)", r.Error.Message, r.Error.Code)
	}

	det := parseAnnotations(r)
	klog.V(1).Infof("detected %d labels, %d web entities", len(det.Labels), len(det.WebEntities))
	return det, nil
}

// parseAnnotations flattens an annotate response into ordered label and
// web-entity strings.
func parseAnnotations(r *vision.AnnotateImageResponse) Detection {
	d := Detection{}

	for _, l := range r.LabelAnnotations {
		if l.Description != "" {
			d.Labels = append(d.Labels, l.Description)
		}
	}

	if r.WebDetection != nil {
		for _, e := range r.WebDetection.WebEntities {
			if e.Description != "" {
				d.WebEntities = append(d.WebEntities, e.Description)
			}
		}
	}

	return d
}
