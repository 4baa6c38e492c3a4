package dataset

import (
	"fmt"
	"io"
)

// Report aggregates the typed counters for one conversion run. Every
// skipped image or region increments exactly one counter; nothing is
// silently dropped.
type Report struct {
	TotalImages       int // Images referenced by the bundle
	SkippedImages     int // Images that could not be resolved or decoded
	TotalRegions      int // Regions seen across all images
	SkippedInvalid    int // Regions with missing labels or <3-point polygons
	SkippedDegenerate int // Regions with no usable area after normalization
	Cropped           int // Regions successfully cropped
	WrittenTrain      int // Samples written to the training manifest
	WrittenVal        int // Samples written to the validation manifest
}

// Written returns the total number of samples persisted.
func (r *Report) Written() int {
	return r.WrittenTrain + r.WrittenVal
}

// Record tallies a written sample into its split counter.
func (r *Report) Record(s Sample) {
	if s.Split == SplitVal {
		r.WrittenVal++
	} else {
		r.WrittenTrain++
	}
}

// Summary writes the end-of-run statistics block.
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, "CONVERSION STATISTICS")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Images in bundle:        %d\n", r.TotalImages)
	fmt.Fprintf(w, "Images skipped:          %d\n", r.SkippedImages)
	fmt.Fprintf(w, "Regions found:           %d\n", r.TotalRegions)
	fmt.Fprintf(w, "Regions cropped:         %d\n", r.Cropped)
	fmt.Fprintf(w, "Skipped (invalid):       %d\n", r.SkippedInvalid)
	fmt.Fprintf(w, "Skipped (degenerate):    %d\n", r.SkippedDegenerate)
	fmt.Fprintf(w, "Written (train):         %d\n", r.WrittenTrain)
	fmt.Fprintf(w, "Written (val):           %d\n", r.WrittenVal)
	if r.TotalRegions > 0 {
		rate := float64(r.Written()) / float64(r.TotalRegions) * 100
		fmt.Fprintf(w, "Success rate:            %.1f%%\n", rate)
	}
	fmt.Fprintln(w, "==================================================")
}
