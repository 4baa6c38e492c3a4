// cropregions is a command-line tool for converting text-region annotations
// into a VietOCR training dataset.
//
// The tool reads an annotation bundle (a Label Studio JSON export, an hOCR
// document or a saved Google Document AI response), crops each annotated
// text region out of its source image — rectifying rotated regions so the
// crops are straight horizontal strips — and writes the crops plus
// tab-separated annotation manifests partitioned into train/validation
// splits.
//
// With -process the input is instead a raw image or PDF: it is sent to a
// Google Document AI OCR processor and the detected lines are converted
// directly, which pre-labels material that has no manual annotations yet.
//
// Configuration:
//
// Options can be supplied in a YAML configuration file:
//
//	train_ratio: 0.8
//	padding: 2
//	target_height: 32
//	image_subdir: "cropped_images"
//	normalize_nfc: true
//
// With -process the file must also carry the Document AI processor settings:
//
//	project_id: "your-gcp-project-id"
//	location: "us"
//	processor_id: "your-processor-id"
//
// Flags given on the command line override the file.
//
// Usage:
//
//	cropregions -input export.json -output ./dataset [options]
//
// Required flags:
//
//	-input string   Path to the annotation bundle
//	-output string  Output directory for crops and manifests
//
// Input options:
//
//	-format string     Bundle format: labelstudio, hocr or gdocai (default "labelstudio")
//	-image-dir string  Directory containing the source images (s3/http references
//	                   are resolved by filename inside this directory)
//	-fetch-remote      Download http(s) image references not found locally
//	-config string     Path to a YAML configuration file
//	-process           OCR the input with Google Document AI instead of
//	                   parsing a saved bundle (authentication via the
//	                   GOOGLE_APPLICATION_CREDENTIALS environment variable)
//	-mime string       MIME type of the input for -process (default "application/pdf")
//	-save-response string  Path to save the raw Document AI response JSON
//
// Conversion options:
//
//	-ratio float        Training split ratio (default 0.8)
//	-padding int        Extra pixels around each crop (default 0)
//	-target-height int  Rescale crops to this line height, 0 keeps original size
//	-no-rectify         Crop bounding boxes only, without straightening rotated regions
//	-nfc                Compose labels to Unicode NFC
//	-combined           Also write the combined annotation_all.txt manifest
//
// Output options:
//
//	-proof string  Path to save a proof-sheet PDF of the converted samples
//	-verbose       Print per-image and per-region warnings (default true)
//
// Example:
//
//	cropregions -input export.json -output ./vietocr_data -image-dir ./images -target-height 32 -proof review.pdf
//	cropregions -input scan.pdf -process -config gcp.yml -output ./vietocr_data -image-dir ./pages -save-response scan_docai.json
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
	"github.com/nghiado905/mineru-vietocr/pkg/convert"
	"github.com/nghiado905/mineru-vietocr/pkg/dataset"
	"github.com/nghiado905/mineru-vietocr/pkg/gdocai"
	"github.com/nghiado905/mineru-vietocr/pkg/proof"
)

type yamlConfig struct {
	TrainRatio   *float64 `yaml:"train_ratio"`
	Padding      *int     `yaml:"padding"`
	MinWidth     *int     `yaml:"min_width"`
	MinHeight    *int     `yaml:"min_height"`
	TargetHeight *int     `yaml:"target_height"`
	NoRectify    *bool    `yaml:"no_rectify"`
	ImageSubdir  *string  `yaml:"image_subdir"`
	NormalizeNFC *bool    `yaml:"normalize_nfc"`
	Combined     *bool    `yaml:"combined"`
	FetchRemote  *bool    `yaml:"fetch_remote"`

	// Google Document AI processor settings, used with -process.
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
}

// applyConfigFile reads a YAML file and folds the set fields into the
// pipeline and processor configs. Unset fields keep their current values.
func applyConfigFile(path string, cfg *convert.Config, dai *gdocai.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return err
	}
	if yc.TrainRatio != nil {
		cfg.Dataset.TrainRatio = *yc.TrainRatio
	}
	if yc.Padding != nil {
		cfg.Crop.Padding = *yc.Padding
	}
	if yc.MinWidth != nil {
		cfg.Crop.MinWidth = *yc.MinWidth
	}
	if yc.MinHeight != nil {
		cfg.Crop.MinHeight = *yc.MinHeight
	}
	if yc.TargetHeight != nil {
		cfg.Crop.TargetHeight = *yc.TargetHeight
	}
	if yc.NoRectify != nil {
		cfg.Crop.NoRectify = *yc.NoRectify
	}
	if yc.ImageSubdir != nil {
		cfg.Dataset.ImageSubdir = *yc.ImageSubdir
	}
	if yc.NormalizeNFC != nil {
		cfg.Dataset.NormalizeNFC = *yc.NormalizeNFC
	}
	if yc.Combined != nil {
		cfg.Dataset.Combined = *yc.Combined
	}
	if yc.FetchRemote != nil {
		cfg.FetchRemote = *yc.FetchRemote
	}
	if yc.ProjectID != "" {
		dai.ProjectID = yc.ProjectID
	}
	if yc.Location != "" {
		dai.Location = yc.Location
	}
	if yc.ProcessorID != "" {
		dai.ProcessorID = yc.ProcessorID
	}
	return nil
}

func main() {
	// Required flags.
	inputPath := flag.String("input", "", "Path to the annotation bundle (required)")
	outputDir := flag.String("output", "", "Output directory for crops and manifests (required)")

	// Input options
	format := flag.String("format", string(convert.FormatLabelStudio),
		fmt.Sprintf("Bundle format, one of %v", convert.Formats()))
	imageDir := flag.String("image-dir", "", "Directory containing the source images")
	fetchRemote := flag.Bool("fetch-remote", false, "Download http(s) image references not found locally")
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	process := flag.Bool("process", false,
		"Treat -input as a raw image or PDF and OCR it with Google Document AI (requires processor settings in -config)")
	mimeType := flag.String("mime", "application/pdf", "MIME type of the input when using -process")
	saveResponse := flag.String("save-response", "", "Path to save the raw Document AI response JSON when using -process")

	// Conversion options
	ratio := flag.Float64("ratio", 0.8, "Training split ratio")
	padding := flag.Int("padding", 0, "Extra pixels around each crop")
	targetHeight := flag.Int("target-height", 0, "Rescale crops to this line height (0 = keep original size)")
	noRectify := flag.Bool("no-rectify", false, "Crop bounding boxes only, without straightening rotated regions")
	nfc := flag.Bool("nfc", false, "Compose labels to Unicode NFC")
	combined := flag.Bool("combined", false, "Also write the combined annotation_all.txt manifest")

	// Output options
	proofPath := flag.String("proof", "", "Path to save a proof-sheet PDF of the converted samples")
	verbose := flag.Bool("verbose", true, "Print per-image and per-region warnings")

	flag.Parse()

	// Create a map of provided flags so command-line values override the
	// config file
	providedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		providedFlags[f.Name] = true
	})

	if *inputPath == "" || *outputDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -input and -output flags are required")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := convert.DefaultConfig()
	var dai gdocai.Config
	if *configPath != "" {
		if err := applyConfigFile(*configPath, &cfg, &dai); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if providedFlags["ratio"] {
		cfg.Dataset.TrainRatio = *ratio
	}
	if providedFlags["padding"] {
		cfg.Crop.Padding = *padding
	}
	if providedFlags["target-height"] {
		cfg.Crop.TargetHeight = *targetHeight
	}
	if providedFlags["no-rectify"] {
		cfg.Crop.NoRectify = *noRectify
	}
	if providedFlags["nfc"] {
		cfg.Dataset.NormalizeNFC = *nfc
	}
	if providedFlags["combined"] {
		cfg.Dataset.Combined = *combined
	}
	if providedFlags["fetch-remote"] {
		cfg.FetchRemote = *fetchRemote
	}
	cfg.LogWarnings = *verbose
	cfg.ImageDir = *imageDir
	cfg.BundleDir = filepath.Dir(*inputPath)
	cfg.Dataset.OutputDir = *outputDir

	// Collect proof samples only when asked to; the PNG re-encode is not
	// free for large datasets.
	var proofSamples []proof.Sample
	if *proofPath != "" {
		cfg.OnSample = func(img image.Image, sample dataset.Sample) {
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return
			}
			proofSamples = append(proofSamples, proof.Sample{
				Image: buf.Bytes(),
				Label: sample.Label,
				Split: sample.Split.String(),
			})
		}
	}

	fmt.Println("Loading input from:", *inputPath)
	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	var bundle *annotation.Bundle
	if *process {
		fmt.Println("Sending input to Google Document AI for OCR...")
		doc, err := gdocai.ProcessImage(context.Background(), data, *mimeType, &dai)
		if err != nil {
			log.Fatalf("Failed to process input with Document AI: %v", err)
		}
		if *saveResponse != "" {
			raw, err := gdocai.MarshalDocumentJSON(doc)
			if err != nil {
				log.Fatalf("Failed to encode Document AI response: %v", err)
			}
			if err := os.WriteFile(*saveResponse, raw, 0644); err != nil {
				log.Fatalf("Failed to save Document AI response: %v", err)
			}
			fmt.Println("Document AI response saved to:", *saveResponse)
		}
		bundle, err = gdocai.BundleFromDocument(doc)
		if err != nil {
			log.Fatalf("Failed to convert Document AI response: %v", err)
		}
	} else {
		bundle, err = convert.ParseBundle(data, convert.Format(*format))
		if err != nil {
			log.Fatalf("Failed to parse annotation bundle: %v", err)
		}
	}
	fmt.Printf("Parsed %d annotated images\n", len(bundle.Images))

	report, err := convert.Run(context.Background(), bundle, cfg)
	if report != nil {
		report.Summary(os.Stdout)
	}
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	if *proofPath != "" {
		if len(proofSamples) == 0 {
			fmt.Println("Warning: no samples written, skipping proof sheet")
		} else {
			pdfBytes, err := proof.Build(proofSamples, proof.DefaultConfig())
			if err != nil {
				log.Fatalf("Failed to build proof sheet: %v", err)
			}
			if err := os.WriteFile(*proofPath, pdfBytes, 0644); err != nil {
				log.Fatalf("Failed to write proof sheet: %v", err)
			}
			fmt.Println("Proof sheet saved to:", *proofPath)
		}
	}

	fmt.Println("Conversion completed, output files are in:", *outputDir)
}
