package imaging

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// SaveOptions controls how stored pixels are mapped before encoding.
type SaveOptions struct {
	// Gain multiplies every color channel. Zero is treated as 1.
	Gain float64 `json:"gain"`

	// Gamma is applied as v^(1/Gamma) when SRGB is false. Zero is treated as 1.
	Gamma float64 `json:"gamma"`

	// SRGB encodes channels with the sRGB transfer curve instead of Gamma,
	// treating stored values as linear.
	SRGB bool `json:"srgb"`

	// Dither adds up to half a quantization step of noise before rounding.
	Dither bool `json:"dither"`
}

// DefaultSaveOptions writes pixels unchanged.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{Gain: 1, Gamma: 1}
}

// Save writes img to path, choosing the encoder from the file extension.
//
// Supported extensions: .png, .jpg, .jpeg, .gif, .bmp, .tif, .tiff (through
// disintegration/imaging), .ppm and .pfm. PFM output keeps the gain but is
// written before the transfer curve and without dithering.
func Save(img *image.NRGBA, path string, opts SaveOptions) error {
	if img == nil {
		return ErrNullImage
	}
	if opts.Gain == 0 {
		opts.Gain = 1
	}
	if opts.Gamma == 0 {
		opts.Gamma = 1
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pfm":
		return writeFile(path, func(f *os.File) error { return EncodePFM(f, img, opts.Gain) })
	case ".ppm":
		mapped := ApplyTransfer(img, opts)
		return writeFile(path, func(f *os.File) error { return EncodePPM(f, mapped) })
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", path, err)
	}
	mapped := ApplyTransfer(img, opts)
	return writeFile(path, func(f *os.File) error {
		return imaging.Encode(f, mapped, format, imaging.JPEGQuality(95))
	})
}

func writeFile(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", path, err)
	}
	return nil
}

// ApplyTransfer returns a copy of img with gain, transfer curve and optional
// dither applied to the color channels. Alpha is copied unchanged.
func ApplyTransfer(img *image.NRGBA, opts SaveOptions) *image.NRGBA {
	if opts.Gain == 0 {
		opts.Gain = 1
	}
	if opts.Gamma == 0 {
		opts.Gamma = 1
	}

	out := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	identity := opts.Gain == 1 && !opts.SRGB && opts.Gamma == 1 && !opts.Dither

	// precompute the curve for the 256 possible inputs
	var lut [256]float64
	for i := range lut {
		v := float64(i) / 255 * opts.Gain
		switch {
		case opts.SRGB:
			v = LinearToSRGB(v)
		case opts.Gamma != 1:
			v = math.Pow(math.Max(v, 0), 1/opts.Gamma)
		}
		lut[i] = v
	}

	for y := 0; y < out.Rect.Dy(); y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < out.Rect.Dx(); x++ {
			for c := 0; c < 3; c++ {
				if identity {
					dst[4*x+c] = src[4*x+c]
					continue
				}
				v := lut[src[4*x+c]]
				if opts.Dither {
					v += (rand.Float64() - 0.5) / 255
				}
				dst[4*x+c] = quantize(v)
			}
			dst[4*x+3] = src[4*x+3]
		}
	}
	return out
}

// LinearToSRGB applies the sRGB transfer curve to a linear value.
func LinearToSRGB(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return colorful.LinearRgb(v, v, v).R
}

// SRGBToLinear inverts LinearToSRGB.
func SRGBToLinear(v float64) float64 {
	if v <= 0 {
		return 0
	}
	r, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
	return r
}
