package ops

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/history"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Crop keeps only rect. The rectangle must lie within the image at run time.
func Crop(rect image.Rectangle) (editor.CommandWithProgress, error) {
	if err := nonEmpty(rect); err != nil {
		return nil, err
	}
	return func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		if err := checkRegion(src, rect); err != nil {
			return editor.Result{}, err
		}
		p.SetBusy()
		out := imaging.Crop(src, rect)
		return editor.Result{Image: out, Undo: history.NewFullImageUndo(src)}, nil
	}, nil
}

var resampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// Resize scales the image to width x height. A zero dimension preserves the
// aspect ratio. The output may not exceed imaging.MaxPixels.
func Resize(width, height int, filter string) (editor.CommandWithProgress, error) {
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return nil, fmt.Errorf("%w: resize to %dx%d", ErrInvalidParameter, width, height)
	}
	if width > imgutil.MaxPixels || height > imgutil.MaxPixels {
		return nil, fmt.Errorf("%w: resize to %dx%d: %v", ErrInvalidParameter, width, height, imgutil.ErrTooLarge)
	}
	if err := imgutil.CheckSize(width, height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if filter == "" {
		filter = "lanczos"
	}
	f, ok := resampleFilters[strings.ToLower(filter)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidParameter, filter)
	}
	scale := whole(func(src *image.NRGBA) image.Image {
		return imaging.Resize(src, width, height, f)
	})
	return func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		if src != nil {
			w, h := resizedSize(src.Rect.Dx(), src.Rect.Dy(), width, height)
			if err := imgutil.CheckSize(w, h); err != nil {
				return editor.Result{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
			}
		}
		return scale(src, p)
	}, nil
}

// resizedSize fills in a zero target dimension from the source aspect ratio.
func resizedSize(srcW, srcH, width, height int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return width, height
	}
	if width == 0 {
		width = int(float64(srcW) * float64(height) / float64(srcH))
	}
	if height == 0 {
		height = int(float64(srcH) * float64(width) / float64(srcW))
	}
	return width, height
}

// Rotate turns the image counter-clockwise by a multiple of 90 degrees.
func Rotate(degrees int) (editor.CommandWithProgress, error) {
	var fn func(image.Image) *image.NRGBA
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		fn = imaging.Rotate90
	case 180:
		fn = imaging.Rotate180
	case 270:
		fn = imaging.Rotate270
	default:
		return nil, fmt.Errorf("%w: rotation must be a non-zero multiple of 90 degrees, got %d", ErrInvalidParameter, degrees)
	}
	return whole(func(src *image.NRGBA) image.Image { return fn(src) }), nil
}

func FlipHorizontal() editor.CommandWithProgress {
	return whole(func(src *image.NRGBA) image.Image { return imaging.FlipH(src) })
}

func FlipVertical() editor.CommandWithProgress {
	return whole(func(src *image.NRGBA) image.Image { return imaging.FlipV(src) })
}
