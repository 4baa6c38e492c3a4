// Package hocr parses hOCR documents into text-line annotation bundles.
//
// hOCR is an HTML-based standard format for representing OCR results. OCR
// engines that emit it (Tesseract among others) already segment pages into
// lines and words with pixel bounding boxes, which makes an hOCR document a
// ready-made source of pre-labeled text regions for OCR training data.
//
// The parser walks the hOCR hierarchy (ocr_page → ocr_line → ocrx_word)
// and flattens it: one bundle image per page, one region per line, with the
// line's label built from its word texts and its polygon from the bbox in
// the element's title attribute. Coordinates in hOCR are always absolute
// pixels.
//
// Main Functions:
//
// - ParseLines: parses hOCR data into a Bundle of per-line regions
// - ParseTitle: breaks an hOCR title attribute into its properties
// - ParseBoundingBoxFromTitle: extracts a bbox from a title string
package hocr
