// Package dataset persists cropped text-line samples in VietOCR training
// layout: a directory of lossless PNG crops plus tab-separated manifest
// files mapping each crop's relative path to its text label, partitioned
// into train and validation splits.
//
// Determinism is the governing constraint. Split assignment is a pure
// function of the running sample index and the configured ratio, filenames
// derive from the source image identity and region index, and collisions
// resolve through a deterministic numeric suffix. Two runs over the same
// bundle therefore produce byte-identical manifests and identically named
// crops, so re-running a conversion overwrites instead of accumulating
// duplicates.
//
// Key Types:
//
// - Writer: owns the manifest handles and the filename registry for one run
// - Report: typed counters for the end-of-run summary
// - Split: train or validation assignment of a sample
package dataset

import "math"

// Manifest filenames within the output directory.
const (
	TrainManifest    = "annotation_train.txt"
	ValManifest      = "annotation_val.txt"
	CombinedManifest = "annotation_all.txt"
)

// Split identifies which partition a sample belongs to.
type Split int

const (
	SplitTrain Split = iota
	SplitVal
)

// String returns the conventional short name of the split.
func (s Split) String() string {
	if s == SplitVal {
		return "val"
	}
	return "train"
}

// Config holds the dataset layout options.
type Config struct {
	OutputDir    string  // Root directory for manifests and the image subdirectory
	ImageSubdir  string  // Subdirectory for cropped images, relative to OutputDir
	TrainRatio   float64 // Fraction of samples assigned to the training split
	NormalizeNFC bool    // Compose labels to Unicode NFC before writing
	Combined     bool    // Also write the combined annotation_all.txt manifest
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		ImageSubdir:  "cropped_images",
		TrainRatio:   0.8,
		NormalizeNFC: false,
		Combined:     false,
	}
}

// splitFor assigns the n-th sample (0-based) of a run. A sample goes to
// train whenever doing so keeps the train count at ceil((n+1)*ratio); the
// assignment is exact over any prefix of the run and identical across
// reruns.
func splitFor(n int, ratio float64) Split {
	if math.Ceil(float64(n+1)*ratio) > math.Ceil(float64(n)*ratio) {
		return SplitTrain
	}
	return SplitVal
}
