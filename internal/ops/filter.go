package ops

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-edit-mcp/internal/editor"
)

// Blur applies a gaussian blur with the given sigma.
func Blur(sigma float64) (editor.CommandWithProgress, error) {
	if err := positive("sigma", sigma); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return imaging.Blur(src, sigma) }), nil
}

// Sharpen applies an unsharp mask with the given sigma.
func Sharpen(sigma float64) (editor.CommandWithProgress, error) {
	if err := positive("sigma", sigma); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return imaging.Sharpen(src, sigma) }), nil
}

// Median replaces each pixel with the median of its neighborhood.
func Median(radius float64) (editor.CommandWithProgress, error) {
	if err := inRange("radius", radius, 1, 32); err != nil {
		return nil, err
	}
	return whole(func(src *image.NRGBA) image.Image { return effect.Median(src, radius) }), nil
}

// Sobel highlights edges with the Sobel operator.
func Sobel() editor.CommandWithProgress {
	return whole(func(src *image.NRGBA) image.Image { return effect.Sobel(src) })
}

func Emboss() editor.CommandWithProgress {
	return whole(func(src *image.NRGBA) image.Image { return effect.Emboss(src) })
}

// Threshold turns the image black and white: white where luminance is at
// least level.
func Threshold(level int) (editor.CommandWithProgress, error) {
	if level < 0 || level > 255 {
		return nil, fmt.Errorf("%w: level must be between 0 and 255, got %d", ErrInvalidParameter, level)
	}
	return whole(func(src *image.NRGBA) image.Image { return segment.Threshold(src, uint8(level)) }), nil
}
