// Package annotation defines the normalized object model for text-region
// annotations used throughout the conversion pipeline.
//
// Annotation bundles come from different tools (Label Studio exports, hOCR
// documents, Google Document AI responses) with different coordinate
// conventions. This package provides:
//
// - A common Bundle → ImageAnnotation → Region hierarchy
// - Explicit coordinate units (percent-of-image vs absolute pixels) with
//   normalization against the decoded image dimensions
// - Polygon geometry helpers (area, bounding box, corner ordering)
// - The error taxonomy shared by the parser, cropper and writer stages
//
// Key Types:
//
// - Bundle: an ordered set of annotated images, one per source image
// - ImageAnnotation: one source image with its ordered text regions
// - Region: a polygon-bounded area with its transcribed text label
// - Quad: an ordered four-corner polygon used by the cropper
//
// Ordering is significant: bundles preserve the input record order, and
// regions preserve their annotation order within an image. Downstream
// filename generation and train/val split assignment depend on it.
package annotation
