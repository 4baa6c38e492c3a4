package hocr

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

// ParseLines converts raw hOCR data into an annotation bundle with one
// image per ocr_page and one region per ocr_line. Pages and lines keep
// their document order.
func ParseLines(data []byte) (*annotation.Bundle, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, err
	}

	bundle := &annotation.Bundle{}
	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			bundle.Images = append(bundle.Images, processPage(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(doc)

	if len(bundle.Images) == 0 {
		return nil, fmt.Errorf("no ocr_page elements found in HOCR data")
	}
	return bundle, nil
}

// decodeCharset sniffs the document's declared charset and converts
// non-UTF-8 content to UTF-8. Only ISO-8859-1 style single-byte encodings
// are converted; anything declared as UTF-8 (or undeclared) passes through.
func decodeCharset(data []byte) ([]byte, error) {
	content := string(data)
	encoding := "utf-8"
	if idx := strings.Index(content, "charset="); idx >= 0 {
		start := idx + len("charset=")
		end := min(start+20, len(content))
		fields := strings.FieldsFunc(content[start:end], func(r rune) bool {
			return r == '"' || r == ';' || r == '\'' || r == '>'
		})
		if len(fields) > 0 && fields[0] != "" {
			encoding = strings.ToLower(fields[0])
		}
	}
	if encoding == "utf-8" {
		return data, nil
	}
	decoder := charmap.ISO8859_1.NewDecoder()
	decoded, err := decoder.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", encoding, err)
	}
	return decoded, nil
}

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// ParseBoundingBoxFromTitle extracts a bounding box from a title string
// Returns a structured BoundingBox or nil if extraction fails
func ParseBoundingBoxFromTitle(title string) *annotation.BoundingBox {
	props := ParseTitle(title)
	if bbox, ok := props["bbox"]; ok && len(bbox) >= 4 {
		x1, _ := strconv.ParseFloat(bbox[0], 64)
		y1, _ := strconv.ParseFloat(bbox[1], 64)
		x2, _ := strconv.ParseFloat(bbox[2], 64)
		y2, _ := strconv.ParseFloat(bbox[3], 64)
		result := annotation.NewBoundingBox(x1, y1, x2, y2)
		return &result
	}
	return nil
}

// processPage extracts the page's image reference, dimensions and line regions.
func processPage(n *html.Node) annotation.ImageAnnotation {
	img := annotation.ImageAnnotation{}
	title := attr(n, "title")
	props := ParseTitle(title)
	if image, ok := props["image"]; ok && len(image) > 0 {
		img.ImageRef = strings.Trim(strings.Join(image, " "), `"`)
	}
	if bbox := ParseBoundingBoxFromTitle(title); bbox != nil {
		img.Width = int(bbox.X2)
		img.Height = int(bbox.Y2)
	}

	var findLines func(*html.Node)
	findLines = func(n *html.Node) {
		if n.Type == html.ElementNode &&
			(hasClass(n, "ocr_line") || hasClass(n, "ocr_header") || hasClass(n, "ocr_caption")) {
			if region, ok := processLine(n); ok {
				img.Regions = append(img.Regions, region)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findLines(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		findLines(c)
	}
	return img
}

// processLine builds a pixel-unit rectangle region from one line element.
// Lines without a bbox or without any text are dropped here since they
// carry nothing usable for training.
func processLine(n *html.Node) (annotation.Region, bool) {
	bbox := ParseBoundingBoxFromTitle(attr(n, "title"))
	if bbox == nil {
		return annotation.Region{}, false
	}

	var words []string
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.ElementNode && hasClass(c, "ocrx_word") {
			if text := strings.TrimSpace(nodeText(c)); text != "" {
				words = append(words, text)
			}
			return
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			collect(cc)
		}
	}
	collect(n)

	label := strings.Join(words, " ")
	if label == "" {
		// Some producers put the line text directly in the element.
		label = strings.TrimSpace(nodeText(n))
	}

	region := annotation.RectRegion(attr(n, "id"), label,
		bbox.X1, bbox.Y1, bbox.Width(), bbox.Height(), annotation.UnitPixel)
	return region, true
}

// hasClass reports whether an element's class attribute contains the given class.
func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && strings.Contains(a.Val, class) {
			return true
		}
	}
	return false
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates all text nodes under n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return b.String()
}
