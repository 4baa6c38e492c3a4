package convert

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
	"github.com/nghiado905/mineru-vietocr/pkg/dataset"
)

// writeSourcePNG writes a 200x100 test page into dir and returns its path.
func writeSourcePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return p
}

// lineRegions builds n stacked pixel-unit line regions covering the page.
func lineRegions(n int) []annotation.Region {
	regions := make([]annotation.Region, 0, n)
	for i := 0; i < n; i++ {
		y := float64(i%9) * 10
		regions = append(regions, annotation.RectRegion(
			"", "dòng số "+string(rune('0'+i%10)), 10, y, 120, 9, annotation.UnitPixel))
	}
	return regions
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dataset.OutputDir = t.TempDir()
	cfg.LogWarnings = false
	return cfg
}

func manifestLines(t *testing.T, dir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func TestRunHappyPath(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page_001.png")

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: lineRegions(3)},
	}}

	cfg := testConfig(t)
	report, err := Run(context.Background(), bundle, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalImages)
	assert.Equal(t, 3, report.TotalRegions)
	assert.Equal(t, 3, report.Cropped)
	assert.Equal(t, 3, report.Written())
	assert.Equal(t, 0, report.SkippedImages)

	train := manifestLines(t, cfg.Dataset.OutputDir, dataset.TrainManifest)
	require.NotEmpty(t, train)
	assert.True(t, strings.HasPrefix(train[0], "cropped_images/page_001_region_000.png\t"))
}

func TestRunSkipsInvalidRegion(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")

	regions := lineRegions(2)
	// A two-point "polygon" cannot bound a crop.
	regions = append(regions, annotation.Region{
		Label: "stub",
		Unit:  annotation.UnitPixel,
		Points: []annotation.Point{
			{X: 10, Y: 10}, {X: 50, Y: 10},
		},
	})

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: regions},
	}}

	report, err := Run(context.Background(), bundle, testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedInvalid)
	assert.Equal(t, 2, report.Written())
}

func TestRunSkipsUnlabeledRegion(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")

	regions := lineRegions(1)
	regions = append(regions, annotation.RectRegion("", "", 10, 10, 50, 10, annotation.UnitPixel))

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: regions},
	}}

	report, err := Run(context.Background(), bundle, testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedInvalid)
	assert.Equal(t, 1, report.Written())
}

func TestRunSkipsUnreachableImage(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "good.png")

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: lineRegions(5)},
		{ImageRef: filepath.Join(srcDir, "missing.png"), Regions: lineRegions(2)},
	}}

	var log bytes.Buffer
	cfg := testConfig(t)
	cfg.LogWarnings = true
	cfg.Logger = &log

	report, err := Run(context.Background(), bundle, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedImages)
	assert.Equal(t, 5, report.Written())
	assert.Equal(t, 7, report.TotalRegions)
	assert.Contains(t, log.String(), "missing.png")
}

func TestRunSkipsDegenerateRegion(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")

	regions := lineRegions(1)
	regions = append(regions, annotation.RectRegion("", "nothing", 30, 30, 0, 0, annotation.UnitPixel))

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: regions},
	}}

	report, err := Run(context.Background(), bundle, testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedDegenerate)
	assert.Equal(t, 1, report.Written())
}

func TestRunSplitProportions(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: lineRegions(10)},
	}}

	cfg := testConfig(t)
	cfg.Dataset.TrainRatio = 0.8
	report, err := Run(context.Background(), bundle, cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, report.WrittenTrain)
	assert.Equal(t, 2, report.WrittenVal)
}

func TestRunRerunIsByteIdentical(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")
	outDir := t.TempDir()

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: lineRegions(6)},
	}}

	run := func() []byte {
		cfg := testConfig(t)
		cfg.Dataset.OutputDir = outDir
		_, err := Run(context.Background(), bundle, cfg)
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(outDir, dataset.TrainManifest))
		require.NoError(t, err)
		return data
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestRunPercentRegions(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")

	// 5%..65% of a 200px-wide page is the 10..130 pixel span.
	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: []annotation.Region{
			annotation.RectRegion("", "phần trăm", 5, 10, 60, 20, annotation.UnitPercent),
		}},
	}}

	cfg := testConfig(t)
	var got image.Image
	cfg.OnSample = func(img image.Image, _ dataset.Sample) { got = img }

	report, err := Run(context.Background(), bundle, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, report.Written())
	require.NotNil(t, got)
	assert.Equal(t, 120, got.Bounds().Dx())
	assert.Equal(t, 20, got.Bounds().Dy())
}

func TestRunEmptyBundle(t *testing.T) {
	_, err := Run(context.Background(), &annotation.Bundle{}, testConfig(t))
	assert.Error(t, err)

	_, err = Run(context.Background(), nil, testConfig(t))
	assert.Error(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "page.png")

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: page, Regions: lineRegions(1)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Run(ctx, bundle, testConfig(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Written())
}

func TestResolveImageDir(t *testing.T) {
	imageDir := t.TempDir()
	bundleDir := t.TempDir()
	writeSourcePNG(t, imageDir, "shared.png")
	writeSourcePNG(t, bundleDir, "sibling.png")

	cfg := Config{ImageDir: imageDir, BundleDir: bundleDir}

	tests := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{"basename in image dir", "shared.png", filepath.Join(imageDir, "shared.png"), true},
		{"s3 url maps to basename", "s3://bucket/scans/shared.png", filepath.Join(imageDir, "shared.png"), true},
		{"http url with query", "https://example.com/files/shared.png?sig=abc", filepath.Join(imageDir, "shared.png"), true},
		{"bundle dir fallback", "sibling.png", filepath.Join(bundleDir, "sibling.png"), true},
		{"missing", "nowhere.png", "", false},
		{"empty ref", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveImagePath(tt.ref, cfg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveLiteralPath(t *testing.T) {
	dir := t.TempDir()
	page := writeSourcePNG(t, dir, "literal.png")

	got, ok := ResolveImagePath(page, Config{})
	require.True(t, ok)
	assert.Equal(t, page, got)
}

func TestRunFetchesRemoteImages(t *testing.T) {
	srcDir := t.TempDir()
	page := writeSourcePNG(t, srcDir, "remote.png")
	data, err := os.ReadFile(page)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scans/remote.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: srv.URL + "/scans/remote.png", Regions: lineRegions(2)},
	}}

	cfg := testConfig(t)
	cfg.FetchRemote = true
	cfg.HTTPClient = srv.Client()

	report, err := Run(context.Background(), bundle, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written())
	assert.Equal(t, 0, report.SkippedImages)
}

func TestRunDoesNotFetchWithoutOptIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected fetch")
	}))
	defer srv.Close()

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: srv.URL + "/img.png", Regions: lineRegions(1)},
	}}

	report, err := Run(context.Background(), bundle, testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedImages)
}

func TestRunFetchErrorIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	bundle := &annotation.Bundle{Images: []annotation.ImageAnnotation{
		{ImageRef: srv.URL + "/img.png", Regions: lineRegions(1)},
	}}

	cfg := testConfig(t)
	cfg.FetchRemote = true
	cfg.HTTPClient = srv.Client()

	report, err := Run(context.Background(), bundle, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedImages)
	assert.Equal(t, 0, report.Written())
}

func TestParseBundleDispatch(t *testing.T) {
	lsExport := []byte(`[{"data": {"image": "/data/doc.png"}, "annotations": [{"result": [
		{"id": "r1", "type": "rectangle",
		 "value": {"x": 5, "y": 10, "width": 50, "height": 8, "text": ["xin chào"]}}
	]}]}]`)
	bundle, err := ParseBundle(lsExport, FormatLabelStudio)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 1)
	assert.Equal(t, "/data/doc.png", bundle.Images[0].ImageRef)

	_, err = ParseBundle([]byte("{}"), Format("tsv"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tsv")
}

func TestFormats(t *testing.T) {
	assert.Contains(t, Formats(), FormatLabelStudio)
	assert.Contains(t, Formats(), FormatHOCR)
	assert.Contains(t, Formats(), FormatGDocAI)
}

func TestLoadImageUnavailable(t *testing.T) {
	_, err := loadImage(context.Background(), "/no/such/file.png", Config{})
	assert.ErrorIs(t, err, annotation.ErrImageUnavailable)

	_, err = loadImage(context.Background(), "", Config{})
	assert.ErrorIs(t, err, annotation.ErrImageUnavailable)
}
