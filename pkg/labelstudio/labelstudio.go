// Package labelstudio parses Label Studio OCR export files into annotation
// bundles.
//
// Label Studio's JSON export format is open-ended: the image reference can
// live under several different keys in a task's data object, text can be
// stored as a string or a list of segments under "text", "transcription" or
// "label", and geometry comes as percent rectangles, percent polygons or
// absolute-pixel bounding boxes. Exports also routinely pair a geometry
// result with a separate text result linked by a shared region id.
//
// The parser tolerates unknown fields and missing pieces: a task or region
// missing required data is represented as far as possible and left for the
// pipeline's validation stage to count and skip, so one malformed record
// never aborts a conversion run.
//
// Main Functions:
//
// - ParseExport: converts a raw export (task list or single task) into a Bundle
package labelstudio
