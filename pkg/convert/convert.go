// Package convert runs the annotation-to-training-sample conversion
// pipeline: parse an annotation bundle, resolve and decode each source
// image, crop every valid text region and persist the crops with their
// labels as a VietOCR training dataset.
//
// The pipeline is single-threaded and strictly ordered: images are
// processed in bundle order, regions in annotation order, and every
// downstream decision (filenames, train/val split) is a deterministic
// function of that order. Per-image and per-region failures are local —
// they are logged, counted in the run report and skipped — while manifest
// I/O failures abort the run.
//
// Main Functions:
//
// - ParseBundle: parses raw input in any supported annotation format
// - Run: executes the full pipeline for one bundle
package convert

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
	"github.com/nghiado905/mineru-vietocr/pkg/crop"
	"github.com/nghiado905/mineru-vietocr/pkg/dataset"
)

// Config holds the options for one conversion run.
type Config struct {
	ImageDir    string          // Directory searched for image basenames (handles s3/http references)
	BundleDir   string          // Directory of the input bundle, searched as a fallback
	FetchRemote bool            // Fetch http(s) image references that resolve nowhere locally
	Crop        crop.Config     // Cropper options
	Dataset     dataset.Config  // Dataset layout options
	LogWarnings bool            // Whether to print per-image/per-region warnings
	Logger      io.Writer       // Destination for warnings (nil = stdout)
	HTTPClient  *http.Client    // Client for remote fetches (nil = http.DefaultClient)

	// OnSample, when set, observes every persisted sample together with
	// its cropped raster. Used for proof sheet generation.
	OnSample func(image.Image, dataset.Sample)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Crop:        crop.DefaultConfig(),
		Dataset:     dataset.DefaultConfig(),
		FetchRemote: false,
		LogWarnings: true,
		Logger:      nil, // stdout
	}
}

// Run executes the pipeline for one bundle and returns the run report.
// The report is non-nil even on error so callers can show partial
// progress. The only fatal errors are writer setup and manifest/crop I/O
// failures.
func Run(ctx context.Context, bundle *annotation.Bundle, cfg Config) (report *dataset.Report, err error) {
	report = &dataset.Report{}
	if bundle == nil || len(bundle.Images) == 0 {
		return report, fmt.Errorf("bundle contains no images")
	}

	writer, err := dataset.NewWriter(cfg.Dataset)
	if err != nil {
		return report, err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	logger := getLogger(cfg)
	for _, img := range bundle.Images {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.TotalImages++
		report.TotalRegions += len(img.Regions)

		src, err := loadImage(ctx, img.ImageRef, cfg)
		if err != nil {
			report.SkippedImages++
			if cfg.LogWarnings {
				fmt.Fprintf(logger, "Warning: skipping image %q: %v\n", img.ImageRef, err)
			}
			continue
		}
		width, height := src.Bounds().Dx(), src.Bounds().Dy()

		for idx, region := range img.Regions {
			if verr := region.Validate(); verr != nil {
				report.SkippedInvalid++
				if cfg.LogWarnings {
					fmt.Fprintf(logger, "Warning: skipping region %d of %q: %v\n", idx, img.ImageRef, verr)
				}
				continue
			}

			quad := annotation.QuadFromPolygon(region.PixelPolygon(width, height))
			raster, cerr := crop.Region(src, quad, cfg.Crop)
			if cerr != nil {
				if !errors.Is(cerr, annotation.ErrDegenerateRegion) {
					return report, cerr
				}
				report.SkippedDegenerate++
				if cfg.LogWarnings {
					fmt.Fprintf(logger, "Warning: skipping region %d of %q: %v\n", idx, img.ImageRef, cerr)
				}
				continue
			}
			report.Cropped++

			sample, werr := writer.Put(raster, region.Label, img.ImageRef, idx)
			if werr != nil {
				return report, werr
			}
			report.Record(sample)
			if cfg.OnSample != nil {
				cfg.OnSample(raster, sample)
			}
		}
	}
	return report, nil
}

// getLogger returns the io.Writer to use for warnings, defaulting to
// os.Stdout when the config carries none.
func getLogger(cfg Config) io.Writer {
	if cfg.Logger == nil {
		return os.Stdout
	}
	return cfg.Logger
}
