package tagger

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// jpegQuality is the re-encoding quality for normalized images.
var jpegQuality = 85

// DefaultMaxDimension bounds each axis of a normalized image.
var DefaultMaxDimension = 1024

// Normalize shrinks and re-encodes an image into a JPEG payload suitable for
// remote analysis. Neither axis of the output exceeds maxDim; images already
// within bounds are re-encoded without scaling. A resize failure is never
// fatal: the original file bytes are returned unmodified instead, so a weird
// codec cannot block the pipeline.
//
// Returns an error only when even the raw file cannot be read.
func Normalize(path string, maxDim int) (EncodedImage, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	img, err := imgio.Open(path)
	if err != nil {
		klog.Warningf("resize %s failed, using raw bytes: %v", path, err)
		return rawImage(path)
	}

	// JPEG has no palette or alpha channel, so flatten those first.
	switch img.(type) {
	case *image.Paletted, *image.NRGBA, *image.NRGBA64, *image.RGBA64:
		img = clone.AsRGBA(img)
	}

	b := img.Bounds()
	x, y := b.Dx(), b.Dy()
	if x > maxDim || y > maxDim {
		// Shrink only, preserving aspect ratio.
		if x >= y {
			scale := float64(x) / float64(maxDim)
			x = maxDim
			y = int(float64(b.Dy()) / scale)
		} else {
			scale := float64(y) / float64(maxDim)
			y = maxDim
			x = int(float64(b.Dx()) / scale)
		}
		if x < 1 {
			x = 1
		}
		if y < 1 {
			y = 1
		}
		img = transform.Resize(img, x, y, transform.Lanczos)
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(jpegQuality)(&buf, img); err != nil {
		klog.Warningf("encode %s failed, using raw bytes: %v", path, err)
		return rawImage(path)
	}

	klog.V(1).Infof("normalized %s: %dx%d, %d bytes", path, x, y, buf.Len())
	return EncodedImage{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// rawImage returns the file's bytes as-is, with a mime type guessed from the
// extension.
func rawImage(path string) (EncodedImage, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return EncodedImage{}, err
	}

	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}

	return EncodedImage{Data: bs, MIME: mime}, nil
}
