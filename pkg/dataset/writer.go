package dataset

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sample describes one written training sample.
type Sample struct {
	Filename string // Path recorded in the manifest, relative to OutputDir
	Label    string // Label text as written
	Split    Split  // Assigned partition
}

// Writer persists samples for one conversion run. It owns the manifest
// file handles and the run-scoped filename registry; a single Writer must
// not be used from multiple goroutines without external serialization.
type Writer struct {
	cfg      Config
	train    *os.File
	val      *os.File
	combined *os.File
	used     map[string]bool
	count    int
	closed   bool
}

// NewWriter creates the output layout and opens the manifest files. The
// manifests are recreated at the start of each run: a conversion run is
// the unit of reproducibility, and stale lines from previous runs would
// break the byte-identical rerun guarantee.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.ImageSubdir == "" {
		cfg.ImageSubdir = DefaultConfig().ImageSubdir
	}
	if cfg.TrainRatio < 0 || cfg.TrainRatio > 1 {
		return nil, fmt.Errorf("train ratio must be within [0, 1], got %g", cfg.TrainRatio)
	}

	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, cfg.ImageSubdir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	w := &Writer{cfg: cfg, used: make(map[string]bool)}
	var err error
	if w.train, err = openManifest(cfg.OutputDir, TrainManifest); err != nil {
		return nil, err
	}
	if w.val, err = openManifest(cfg.OutputDir, ValManifest); err != nil {
		w.train.Close()
		return nil, err
	}
	if cfg.Combined {
		if w.combined, err = openManifest(cfg.OutputDir, CombinedManifest); err != nil {
			w.train.Close()
			w.val.Close()
			return nil, err
		}
	}
	return w, nil
}

func openManifest(dir, name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", name, err)
	}
	return f, nil
}

// Put encodes one cropped image as PNG under the image subdirectory and
// appends its manifest entry. Errors here are manifest/image I/O failures
// and must abort the run; a partially written manifest is not safe to
// resume blindly.
func (w *Writer) Put(img image.Image, label, sourceRef string, regionIndex int) (Sample, error) {
	if w.closed {
		return Sample{}, fmt.Errorf("writer is closed")
	}

	filename := w.reserveFilename(sourceRef, regionIndex)
	diskPath := filepath.Join(w.cfg.OutputDir, w.cfg.ImageSubdir, filename)

	f, err := os.Create(diskPath)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to create crop file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return Sample{}, fmt.Errorf("failed to encode crop %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return Sample{}, fmt.Errorf("failed to close crop %s: %w", filename, err)
	}

	// Manifest paths use forward slashes regardless of platform; the
	// training loader treats them as opaque relative paths.
	return w.putEntry(path.Join(w.cfg.ImageSubdir, filename), label)
}

// PutPath appends a manifest entry for an image that already exists on
// disk, without writing any image data. Used by the manifest-only
// conversion mode where whole source images are paired with their labels.
func (w *Writer) PutPath(imagePath, label string) (Sample, error) {
	return w.putEntry(filepath.ToSlash(imagePath), label)
}

func (w *Writer) putEntry(relPath, label string) (Sample, error) {
	if w.closed {
		return Sample{}, fmt.Errorf("writer is closed")
	}

	label = w.sanitizeLabel(label)
	split := splitFor(w.count, w.cfg.TrainRatio)

	dest := w.train
	if split == SplitVal {
		dest = w.val
	}
	line := relPath + "\t" + label + "\n"
	if _, err := dest.WriteString(line); err != nil {
		return Sample{}, fmt.Errorf("failed to write %s manifest: %w", split, err)
	}
	if w.combined != nil {
		if _, err := w.combined.WriteString(line); err != nil {
			return Sample{}, fmt.Errorf("failed to write combined manifest: %w", err)
		}
	}

	w.count++
	return Sample{Filename: relPath, Label: label, Split: split}, nil
}

// reserveFilename derives a deterministic crop filename from the source
// image identity and region index. Distinct source images with the same
// basename can collide; collisions get a numeric suffix chosen by
// first-come order, which is itself deterministic given the fixed input
// ordering.
func (w *Writer) reserveFilename(sourceRef string, regionIndex int) string {
	stem := sourceStem(sourceRef)
	name := fmt.Sprintf("%s_region_%03d", stem, regionIndex)
	candidate := name + ".png"
	for n := 2; w.used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d.png", name, n)
	}
	w.used[candidate] = true
	return candidate
}

// sourceStem reduces an image reference (path or URL) to a filesystem-safe
// base name without extension.
func sourceStem(ref string) string {
	base := path.Base(filepath.ToSlash(ref))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, base)
}

// sanitizeLabel applies the label normalization policy: tab and newline
// are reserved by the manifest format and become single spaces; everything
// else passes through byte-for-byte. NFC composition is opt-in for corpora
// mixing composed and decomposed Vietnamese diacritics.
func (w *Writer) sanitizeLabel(label string) string {
	label = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ").Replace(label)
	if w.cfg.NormalizeNFC {
		label = norm.NFC.String(label)
	}
	return label
}

// Count returns the number of samples written so far.
func (w *Writer) Count() int { return w.count }

// Close flushes and closes all manifest handles. Safe to call more than
// once; the first error encountered is returned.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	for _, f := range []*os.File{w.train, w.val, w.combined} {
		if f == nil {
			continue
		}
		if err := f.Sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to flush manifest: %w", err)
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close manifest: %w", err)
		}
	}
	return firstErr
}
