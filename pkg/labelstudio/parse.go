package labelstudio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

// imageKeys are the task data keys probed for the image reference, in
// order of preference.
var imageKeys = []string{"image", "ocr", "img", "image_url", "image_path"}

// imageExtensions are used as a last resort to sniff an image reference
// out of an unrecognized data key.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp", ".gif"}

// task mirrors the parts of a Label Studio task we consume. Unknown fields
// are ignored by encoding/json, which is what makes the parser tolerant of
// export-format drift.
type task struct {
	ID          int                        `json:"id"`
	Data        map[string]json.RawMessage `json:"data"`
	Annotations []struct {
		Result []result `json:"result"`
	} `json:"annotations"`
}

// result is one entry of an annotation's result array. Geometry and text
// may arrive in the same result or in two results sharing an ID.
type result struct {
	ID             string                     `json:"id"`
	Type           string                     `json:"type"`
	OriginalWidth  int                        `json:"original_width"`
	OriginalHeight int                        `json:"original_height"`
	Value          map[string]json.RawMessage `json:"value"`
}

// ParseExport converts a Label Studio JSON export into an annotation
// bundle. The export may be a task list or a single task object. Task and
// region order is preserved.
func ParseExport(data []byte) (*annotation.Bundle, error) {
	tasks, err := decodeTasks(data)
	if err != nil {
		return nil, err
	}

	bundle := &annotation.Bundle{}
	for _, t := range tasks {
		img := annotation.ImageAnnotation{
			ImageRef: extractImageRef(t.Data),
		}

		// Merge results that share a region id: rectangle/polygon results
		// carry geometry while textarea results carry the transcription.
		order := []string{}
		merged := map[string]*annotation.Region{}
		for a, ann := range t.Annotations {
			for i, res := range ann.Result {
				key := res.ID
				if key == "" {
					key = fmt.Sprintf("_anon_%d_%d", a, i)
				}
				region, ok := merged[key]
				if !ok {
					region = &annotation.Region{ID: res.ID}
					merged[key] = region
					order = append(order, key)
				}
				applyResult(region, res)
				if img.Width == 0 && res.OriginalWidth > 0 {
					img.Width = res.OriginalWidth
					img.Height = res.OriginalHeight
				}
			}
		}
		for _, key := range order {
			img.Regions = append(img.Regions, *merged[key])
		}
		bundle.Images = append(bundle.Images, img)
	}
	return bundle, nil
}

// decodeTasks accepts either a JSON array of tasks or a single task object.
func decodeTasks(data []byte) ([]task, error) {
	var tasks []task
	if err := json.Unmarshal(data, &tasks); err == nil {
		return tasks, nil
	}
	var single task
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("unexpected export structure, want task list or single task: %w", err)
	}
	if single.Data == nil {
		return nil, fmt.Errorf("unexpected export structure: task object has no data field")
	}
	return []task{single}, nil
}

// extractImageRef finds the source image reference in a task's data object.
func extractImageRef(data map[string]json.RawMessage) string {
	for _, key := range imageKeys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		if ref := refFromValue(raw); ref != "" {
			return ref
		}
	}
	// Fall back to any string value that looks like an image path.
	for _, raw := range data {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			continue
		}
		lower := strings.ToLower(s)
		for _, ext := range imageExtensions {
			if strings.Contains(lower, ext) {
				return s
			}
		}
	}
	return ""
}

// refFromValue handles both plain string references and {"url": ...} objects.
func refFromValue(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.URL
	}
	return ""
}

// applyResult folds one result's value into a region: geometry from
// rectangle/points/bbox forms, label from text/transcription/label keys.
// Later results never overwrite pieces an earlier result already supplied.
func applyResult(region *annotation.Region, res result) {
	if region.Label == "" {
		region.Label = extractText(res.Value)
	}
	if len(region.Points) > 0 {
		return
	}

	if pts, ok := extractPoints(res.Value); ok {
		region.Points = pts
		region.Unit = annotation.UnitPercent
		return
	}
	if rect, ok := extractRect(res.Value); ok {
		*region = annotation.RectRegion(region.ID, region.Label,
			rect.X, rect.Y, rect.Width, rect.Height, annotation.UnitPercent)
		return
	}
	if bbox, ok := extractBBox(res.Value); ok {
		*region = annotation.RectRegion(region.ID, region.Label,
			bbox.X, bbox.Y, bbox.Width, bbox.Height, annotation.UnitPixel)
	}
}

// extractText pulls the transcription out of a result value. "text" may be
// a string or a list of segments joined by single spaces; "transcription"
// and "label" are string fallbacks.
func extractText(value map[string]json.RawMessage) string {
	if raw, ok := value["text"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			parts := list[:0]
			for _, seg := range list {
				if seg != "" {
					parts = append(parts, seg)
				}
			}
			return strings.TrimSpace(strings.Join(parts, " "))
		}
	}
	for _, key := range []string{"transcription", "label"} {
		if raw, ok := value[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

type rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// extractRect reads the percent-unit rectangle form (x/y/width/height at
// the top level of the value).
func extractRect(value map[string]json.RawMessage) (rect, bool) {
	var r rect
	for _, key := range []string{"x", "y", "width", "height"} {
		raw, ok := value[key]
		if !ok {
			return rect{}, false
		}
		var f float64
		if json.Unmarshal(raw, &f) != nil {
			return rect{}, false
		}
		switch key {
		case "x":
			r.X = f
		case "y":
			r.Y = f
		case "width":
			r.Width = f
		case "height":
			r.Height = f
		}
	}
	return r, true
}

// extractBBox reads the absolute-pixel bbox object form.
func extractBBox(value map[string]json.RawMessage) (rect, bool) {
	raw, ok := value["bbox"]
	if !ok {
		return rect{}, false
	}
	var r rect
	if json.Unmarshal(raw, &r) != nil {
		return rect{}, false
	}
	return r, true
}

// extractPoints reads the percent-unit polygon form. Points may be
// [[x, y], ...] pairs or [{"x": ..., "y": ...}, ...] objects.
func extractPoints(value map[string]json.RawMessage) ([]annotation.Point, bool) {
	raw, ok := value["points"]
	if !ok {
		return nil, false
	}
	var pairs [][]float64
	if json.Unmarshal(raw, &pairs) == nil && len(pairs) > 0 {
		pts := make([]annotation.Point, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) < 2 {
				return nil, false
			}
			pts = append(pts, annotation.Point{X: pair[0], Y: pair[1]})
		}
		return pts, true
	}
	var objs []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if json.Unmarshal(raw, &objs) == nil && len(objs) > 0 {
		pts := make([]annotation.Point, 0, len(objs))
		for _, o := range objs {
			pts = append(pts, annotation.Point{X: o.X, Y: o.Y})
		}
		return pts, true
	}
	return nil, false
}
