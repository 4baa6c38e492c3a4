package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	// Register the decoders for the formats annotation exports reference.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

// loadImage resolves an image reference, decodes it and converts it to
// RGBA. All failure modes wrap ErrImageUnavailable: the pipeline treats an
// unloadable image as a non-fatal skip.
func loadImage(ctx context.Context, ref string, cfg Config) (*image.RGBA, error) {
	if ref == "" {
		return nil, fmt.Errorf("no image reference: %w", annotation.ErrImageUnavailable)
	}

	if local, ok := resolveLocal(ref, cfg); ok {
		data, err := os.ReadFile(local)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", local, annotation.ErrImageUnavailable)
		}
		return decodeRGBA(data, local)
	}

	if cfg.FetchRemote && isHTTP(ref) {
		data, err := fetchRemote(ctx, ref, cfg)
		if err != nil {
			return nil, err
		}
		return decodeRGBA(data, ref)
	}

	return nil, fmt.Errorf("image %q not found locally: %w", ref, annotation.ErrImageUnavailable)
}

// ResolveImagePath resolves an image reference to an existing local file
// using the same ladder the pipeline uses. Used by the manifest-only
// conversion mode, which records resolved paths instead of crops.
func ResolveImagePath(ref string, cfg Config) (string, bool) {
	if ref == "" {
		return "", false
	}
	return resolveLocal(ref, cfg)
}

// resolveLocal walks the resolution ladder: the configured image directory
// by basename (which is also how s3:// and http references map onto a
// local mirror), then the literal path, then a sibling of the input
// bundle.
func resolveLocal(ref string, cfg Config) (string, bool) {
	base := refBasename(ref)

	if cfg.ImageDir != "" {
		candidate := filepath.Join(cfg.ImageDir, base)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	if !isRemote(ref) && fileExists(ref) {
		return ref, true
	}
	if cfg.BundleDir != "" {
		candidate := filepath.Join(cfg.BundleDir, base)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// refBasename extracts the filename component of a path or URL reference,
// dropping any URL query.
func refBasename(ref string) string {
	if isRemote(ref) {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			return path.Base(u.Path)
		}
	}
	return filepath.Base(filepath.FromSlash(ref))
}

func isRemote(ref string) bool {
	return isHTTP(ref) || strings.HasPrefix(ref, "s3://")
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// fetchRemote downloads an http(s) image reference.
func fetchRemote(ctx context.Context, ref string, cfg Config) ([]byte, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", ref, annotation.ErrImageUnavailable)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", ref, annotation.ErrImageUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %q returned status %d: %w",
			ref, resp.StatusCode, annotation.ErrImageUnavailable)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read body of %q: %w", ref, annotation.ErrImageUnavailable)
	}
	return buf.Bytes(), nil
}

// decodeRGBA decodes image bytes and converts the result to RGBA once, so
// the cropper works on a uniform pixel format for every region of the
// image.
func decodeRGBA(data []byte, name string) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, annotation.ErrImageUnavailable)
	}
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba, nil
	}
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	return out, nil
}
