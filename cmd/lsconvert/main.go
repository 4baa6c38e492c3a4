// lsconvert is a command-line tool for converting Label Studio OCR exports
// into VietOCR annotation manifests without cropping.
//
// Unlike cropregions, which cuts each annotated region out of its source
// image, lsconvert pairs whole source images with their transcribed labels.
// This fits exports where each image is already a single text line (the
// common case when line images were pre-cropped before annotation): the
// manifests reference the original images in place and no pixel data is
// copied.
//
// Usage:
//
//	lsconvert -input export.json -output ./vietocr_data [options]
//
// Required flags:
//
//	-input string   Path to the Label Studio JSON export
//	-output string  Output directory for the annotation manifests
//
// Options:
//
//	-image-dir string  Directory containing the images (s3/http references
//	                   are resolved by filename inside this directory)
//	-ratio float       Training split ratio (default 0.8)
//	-combined          Also write the combined annotation_all.txt manifest
//	-nfc               Compose labels to Unicode NFC
//
// Example:
//
//	lsconvert -input export.json -output ./vietocr_data -image-dir ./images
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nghiado905/mineru-vietocr/pkg/convert"
	"github.com/nghiado905/mineru-vietocr/pkg/dataset"
	"github.com/nghiado905/mineru-vietocr/pkg/labelstudio"
)

func main() {
	inputPath := flag.String("input", "", "Path to the Label Studio JSON export (required)")
	outputDir := flag.String("output", "", "Output directory for the annotation manifests (required)")
	imageDir := flag.String("image-dir", "", "Directory containing the images")
	ratio := flag.Float64("ratio", 0.8, "Training split ratio")
	combined := flag.Bool("combined", false, "Also write the combined annotation_all.txt manifest")
	nfc := flag.Bool("nfc", false, "Compose labels to Unicode NFC")
	flag.Parse()

	if *inputPath == "" || *outputDir == "" {
		fmt.Println("Error: Must provide -input and -output paths")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}
	bundle, err := labelstudio.ParseExport(data)
	if err != nil {
		log.Fatalf("Failed to parse Label Studio export: %v", err)
	}
	fmt.Printf("Parsed %d tasks from %s\n", len(bundle.Images), *inputPath)

	resolveCfg := convert.Config{
		ImageDir:  *imageDir,
		BundleDir: filepath.Dir(*inputPath),
	}

	dsCfg := dataset.DefaultConfig()
	dsCfg.OutputDir = *outputDir
	dsCfg.ImageSubdir = "." // manifest-only mode writes no crops
	dsCfg.TrainRatio = *ratio
	dsCfg.Combined = *combined
	dsCfg.NormalizeNFC = *nfc

	writer, err := dataset.NewWriter(dsCfg)
	if err != nil {
		log.Fatalf("Failed to create dataset writer: %v", err)
	}
	defer writer.Close()

	report := &dataset.Report{}
	for _, img := range bundle.Images {
		report.TotalImages++
		report.TotalRegions += len(img.Regions)

		resolved, ok := convert.ResolveImagePath(img.ImageRef, resolveCfg)
		if !ok {
			report.SkippedImages++
			fmt.Printf("Warning: image not found: %s, skipping\n", img.ImageRef)
			continue
		}

		// Manifest paths are relative to the output directory, matching
		// what VietOCR's loader expects for its data root.
		relPath, err := filepath.Rel(*outputDir, resolved)
		if err != nil {
			relPath = resolved
		}

		for _, region := range img.Regions {
			if region.Label == "" {
				report.SkippedInvalid++
				continue
			}
			sample, err := writer.PutPath(relPath, region.Label)
			if err != nil {
				log.Fatalf("Failed to write manifest entry: %v", err)
			}
			report.Record(sample)
		}
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("Failed to close manifests: %v", err)
	}

	report.Summary(os.Stdout)
	fmt.Println("Conversion completed, output files are in:", *outputDir)
}
