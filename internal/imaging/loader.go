package imaging

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrNullImage indicates an operation on a nil image.
var ErrNullImage = errors.New("image is null")

// ErrTooLarge indicates image dimensions above MaxPixels.
var ErrTooLarge = errors.New("image too large")

// MaxPixels caps the pixel count of any image the editor allocates, which is
// 1 GiB as NRGBA.
const MaxPixels = 1 << 28

// CheckSize returns ErrTooLarge when a width x height image would exceed
// MaxPixels. Non-positive dimensions are left to the caller.
func CheckSize(width, height int) error {
	if width > 0 && height > 0 && width > MaxPixels/height {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, MaxPixels)
	}
	return nil
}

// supportedExtensions is the allow-list used when expanding directories.
// Matching is case-insensitive and excludes the leading dot.
var supportedExtensions = map[string]bool{
	"exr":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"hdr":  true,
	"pic":  true,
	"pfm":  true,
	"ppm":  true,
	"bmp":  true,
	"tga":  true,
	"psd":  true,
}

// IsSupported reports whether path has an extension on the allow-list.
func IsSupported(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return supportedExtensions[ext]
}

// SupportedExtensions returns the allow-list, lower case, without dots.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// Load reads and decodes the image at path.
//
// Parameters:
//   - path: Absolute or relative file path to the image.
//
// Returns:
//   - *image.NRGBA: The decoded image, converted to non-premultiplied RGBA with
//     its bounds starting at (0,0). The caller owns the returned value.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// JPEG images are rotated according to their EXIF orientation tag. The
// header is checked against MaxPixels before any pixel data is decoded.
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %q: %w", path, err)
	}
	if err := CheckSize(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("failed to decode image %q: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to read image %q: %w", path, err)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %q: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img as an *image.NRGBA anchored at (0,0). An image that
// already has that form is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// ImageInfo contains metadata about an image held by the editor.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "ppm", ...
	// or "unknown".
	Format string `json:"format"`

	// HasAlpha reports whether any pixel is not fully opaque.
	HasAlpha bool `json:"has_alpha"`
}

// Info describes img, using filename only for the format.
func Info(img *image.NRGBA, filename string) *ImageInfo {
	info := &ImageInfo{Format: formatName(filename)}
	if img == nil {
		return info
	}
	info.Width = img.Rect.Dx()
	info.Height = img.Rect.Dy()
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			info.HasAlpha = true
			break
		}
	}
	return info
}

func formatName(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".ppm":
		return "ppm"
	case ".pfm":
		return "pfm"
	}
	return "unknown"
}
