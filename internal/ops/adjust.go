package ops

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-edit-mcp/internal/editor"
)

// Brightness shifts lightness by percent, in [-100, 100].
func Brightness(percent float64) (editor.CommandWithProgress, error) {
	if err := inRange("percent", percent, -100, 100); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return imaging.AdjustBrightness(src, percent) }), nil
}

// Contrast changes contrast by percent, in [-100, 100].
func Contrast(percent float64) (editor.CommandWithProgress, error) {
	if err := inRange("percent", percent, -100, 100); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return imaging.AdjustContrast(src, percent) }), nil
}

// Gamma applies a gamma correction. Values above 1 brighten.
func Gamma(gamma float64) (editor.CommandWithProgress, error) {
	if err := positive("gamma", gamma); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return imaging.AdjustGamma(src, gamma) }), nil
}

// Saturation changes saturation by percent, in [-100, 100].
func Saturation(percent float64) (editor.CommandWithProgress, error) {
	if err := inRange("percent", percent, -100, 100); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return imaging.AdjustSaturation(src, percent) }), nil
}

// Hue rotates the hue by degrees, in [-360, 360].
func Hue(degrees int) (editor.CommandWithProgress, error) {
	if err := inRange("degrees", float64(degrees), -360, 360); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return adjust.Hue(src, degrees) }), nil
}

func Grayscale() editor.CommandWithProgress {
	return whole(func(src *image.NRGBA) image.Image { return imaging.Grayscale(src) })
}

// Exposure scales color channels by 2^stops, in [-10, 10]. Alpha is kept.
func Exposure(stops float64) (editor.CommandWithProgress, error) {
	if err := inRange("stops", stops, -10, 10); err != nil {
		return nil, err
	}
	gain := math.Pow(2, stops)
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampByte(float64(i) * gain)
	}
	return perPixel(func(c [4]uint8) [4]uint8 {
		return [4]uint8{lut[c[0]], lut[c[1]], lut[c[2]], c[3]}
	}), nil
}

// Invert replaces every color channel v with 255-v. Alpha is kept.
func Invert() editor.CommandWithProgress {
	return perPixel(func(c [4]uint8) [4]uint8 {
		return [4]uint8{255 - c[0], 255 - c[1], 255 - c[2], c[3]}
	})
}
