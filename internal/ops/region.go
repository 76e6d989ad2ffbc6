package ops

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/history"
)

// region builds a command that rewrites only rect. fn receives a copy of
// the whole image and edits rect in place. The undo record holds the
// original pixels of rect alone.
func region(rect image.Rectangle, fn func(out *image.NRGBA)) (editor.CommandWithProgress, error) {
	if err := nonEmpty(rect); err != nil {
		return nil, err
	}
	return func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		if err := checkRegion(src, rect); err != nil {
			return editor.Result{}, err
		}
		p.SetBusy()
		undo, err := history.NewDeltaUndo(src, rect)
		if err != nil {
			return editor.Result{}, err
		}
		out := imaging.Clone(src)
		fn(out)
		return editor.Result{Image: out, Undo: undo}, nil
	}, nil
}

// FillRegion paints rect with c, replacing the pixels.
func FillRegion(rect image.Rectangle, c color.NRGBA) (editor.CommandWithProgress, error) {
	return region(rect, func(out *image.NRGBA) {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				out.SetNRGBA(x, y, c)
			}
		}
	})
}

// InvertRegion inverts the color channels inside rect.
func InvertRegion(rect image.Rectangle) (editor.CommandWithProgress, error) {
	return region(rect, func(out *image.NRGBA) {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			i := out.PixOffset(rect.Min.X, y)
			for x := rect.Min.X; x < rect.Max.X; x++ {
				out.Pix[i] = 255 - out.Pix[i]
				out.Pix[i+1] = 255 - out.Pix[i+1]
				out.Pix[i+2] = 255 - out.Pix[i+2]
				i += 4
			}
		}
	})
}

// BlurRegion blurs the pixels inside rect. Pixels outside rect do not
// bleed in.
func BlurRegion(rect image.Rectangle, sigma float64) (editor.CommandWithProgress, error) {
	if err := positive("sigma", sigma); err != nil {
		return nil, err
	}
	return region(rect, func(out *image.NRGBA) {
		blurred := imaging.Blur(imaging.Crop(out, rect), sigma)
		for y := 0; y < rect.Dy(); y++ {
			copy(out.Pix[out.PixOffset(rect.Min.X, rect.Min.Y+y):], blurred.Pix[y*blurred.Stride:y*blurred.Stride+rect.Dx()*4])
		}
	})
}
