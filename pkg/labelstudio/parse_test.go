package labelstudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

func TestParseExportRectangleWithText(t *testing.T) {
	data := []byte(`[
		{
			"id": 1,
			"data": {"image": "/data/upload/page1.png", "unknown_field": 42},
			"annotations": [{
				"result": [{
					"id": "r1",
					"type": "rectanglelabels",
					"original_width": 800,
					"original_height": 600,
					"value": {"x": 10, "y": 20, "width": 50, "height": 5, "text": "Xin chào thế giới"}
				}]
			}]
		}
	]`)

	bundle, err := ParseExport(data)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 1)

	img := bundle.Images[0]
	assert.Equal(t, "/data/upload/page1.png", img.ImageRef)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 600, img.Height)
	require.Len(t, img.Regions, 1)

	region := img.Regions[0]
	assert.Equal(t, "Xin chào thế giới", region.Label)
	assert.Equal(t, annotation.UnitPercent, region.Unit)
	assert.Equal(t, []annotation.Point{{X: 10, Y: 20}, {X: 60, Y: 20}, {X: 60, Y: 25}, {X: 10, Y: 25}}, region.Points)
	require.NoError(t, region.Validate())
}

func TestParseExportMergesGeometryAndTextByID(t *testing.T) {
	// The common Label Studio OCR export shape: a rectangle result and a
	// textarea result sharing a region id.
	data := []byte(`[
		{
			"data": {"ocr": "scan_042.jpg"},
			"annotations": [{
				"result": [
					{
						"id": "region_a",
						"type": "rectangle",
						"value": {"x": 5, "y": 10, "width": 40, "height": 8}
					},
					{
						"id": "region_a",
						"type": "textarea",
						"value": {"text": ["Hóa đơn", "số 17"]}
					}
				]
			}]
		}
	]`)

	bundle, err := ParseExport(data)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 1)
	require.Len(t, bundle.Images[0].Regions, 1)

	region := bundle.Images[0].Regions[0]
	assert.Equal(t, "Hóa đơn số 17", region.Label)
	assert.Len(t, region.Points, 4)
	require.NoError(t, region.Validate())
}

func TestParseExportPolygonPoints(t *testing.T) {
	tests := []struct {
		name   string
		points string
	}{
		{"pair form", `[[10, 20], [30, 20], [30, 28], [10, 28]]`},
		{"object form", `[{"x": 10, "y": 20}, {"x": 30, "y": 20}, {"x": 30, "y": 28}, {"x": 10, "y": 28}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`[{
				"data": {"image": "a.png"},
				"annotations": [{"result": [{
					"id": "p",
					"value": {"points": ` + tt.points + `, "transcription": "dòng chữ"}
				}]}]
			}]`)
			bundle, err := ParseExport(data)
			require.NoError(t, err)
			region := bundle.Images[0].Regions[0]
			assert.Equal(t, "dòng chữ", region.Label)
			assert.Equal(t, annotation.UnitPercent, region.Unit)
			assert.Equal(t, []annotation.Point{{X: 10, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 28}, {X: 10, Y: 28}}, region.Points)
		})
	}
}

func TestParseExportPixelBBox(t *testing.T) {
	data := []byte(`[{
		"data": {"image": "b.png"},
		"annotations": [{"result": [{
			"id": "bb",
			"value": {"bbox": {"x": 100, "y": 50, "width": 300, "height": 40}, "label": "tiêu đề"}
		}]}]
	}]`)
	bundle, err := ParseExport(data)
	require.NoError(t, err)
	region := bundle.Images[0].Regions[0]
	assert.Equal(t, "tiêu đề", region.Label)
	assert.Equal(t, annotation.UnitPixel, region.Unit)
	assert.Equal(t, []annotation.Point{{X: 100, Y: 50}, {X: 400, Y: 50}, {X: 400, Y: 90}, {X: 100, Y: 90}}, region.Points)
}

func TestExtractImageRef(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"image key", `{"image": "x.png"}`, "x.png"},
		{"url object", `{"image_url": {"url": "https://bucket/x.png"}}`, "https://bucket/x.png"},
		{"s3 reference", `{"ocr": "s3://bucket/path/scan.jpg"}`, "s3://bucket/path/scan.jpg"},
		{"sniffed extension", `{"custom": "uploads/photo.JPEG"}`, "uploads/photo.JPEG"},
		{"none", `{"caption": "no picture here"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`[{"data": ` + tt.data + `, "annotations": []}]`)
			bundle, err := ParseExport(data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, bundle.Images[0].ImageRef)
		})
	}
}

func TestParseExportSingleTaskObject(t *testing.T) {
	data := []byte(`{
		"data": {"image": "solo.png"},
		"annotations": [{"result": [{
			"id": "s", "value": {"x": 0, "y": 0, "width": 10, "height": 10, "text": "a"}
		}]}]
	}`)
	bundle, err := ParseExport(data)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 1)
	assert.Equal(t, "solo.png", bundle.Images[0].ImageRef)
}

func TestParseExportRejectsInvalidJSON(t *testing.T) {
	_, err := ParseExport([]byte(`{"not": "a task"}`))
	assert.Error(t, err)

	_, err = ParseExport([]byte(`{{{`))
	assert.Error(t, err)
}

func TestParseExportKeepsRegionsForValidation(t *testing.T) {
	// A geometry-only region stays in the bundle with an empty label so
	// the pipeline can count it as an invalid-annotation skip.
	data := []byte(`[{
		"data": {"image": "c.png"},
		"annotations": [{"result": [{
			"id": "geom_only",
			"value": {"x": 1, "y": 1, "width": 5, "height": 5}
		}]}]
	}]`)
	bundle, err := ParseExport(data)
	require.NoError(t, err)
	require.Len(t, bundle.Images[0].Regions, 1)
	assert.ErrorIs(t, bundle.Images[0].Regions[0].Validate(), annotation.ErrInvalidAnnotation)
}

func TestParseExportKeepsAnonymousResultsPerAnnotation(t *testing.T) {
	// Two annotators, each submitting an id-less result: the results are
	// unrelated and must become distinct regions, not merge by index.
	data := []byte(`[{
		"data": {"image": "multi.png"},
		"annotations": [
			{"result": [
				{"value": {"x": 0, "y": 0, "width": 20, "height": 5, "text": "người một"}}
			]},
			{"result": [
				{"value": {"x": 50, "y": 50, "width": 20, "height": 5, "text": "người hai"}}
			]}
		]
	}]`)
	bundle, err := ParseExport(data)
	require.NoError(t, err)
	require.Len(t, bundle.Images[0].Regions, 2)

	assert.Equal(t, "người một", bundle.Images[0].Regions[0].Label)
	assert.Equal(t, "người hai", bundle.Images[0].Regions[1].Label)
	assert.Equal(t, annotation.Point{X: 50, Y: 50}, bundle.Images[0].Regions[1].Points[0])
}

func TestParseExportPreservesOrder(t *testing.T) {
	data := []byte(`[
		{"data": {"image": "1.png"}, "annotations": [{"result": [
			{"id": "a", "value": {"x": 0, "y": 0, "width": 1, "height": 1, "text": "first"}},
			{"id": "b", "value": {"x": 1, "y": 1, "width": 1, "height": 1, "text": "second"}},
			{"id": "c", "value": {"x": 2, "y": 2, "width": 1, "height": 1, "text": "third"}}
		]}]},
		{"data": {"image": "2.png"}, "annotations": []}
	]`)
	bundle, err := ParseExport(data)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 2)

	var labels []string
	for _, r := range bundle.Images[0].Regions {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"first", "second", "third"}, labels)
	assert.Equal(t, "2.png", bundle.Images[1].ImageRef)
}
