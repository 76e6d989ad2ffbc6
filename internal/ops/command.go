package ops

import (
	"image"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/history"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// whole builds a command that replaces the entire image with fn's output.
func whole(fn func(src *image.NRGBA) image.Image) editor.CommandWithProgress {
	return func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		if src == nil {
			return editor.Result{}, imgutil.ErrNullImage
		}
		p.SetBusy()
		out := imgutil.ToNRGBA(fn(src))
		return editor.Result{Image: out, Undo: history.NewFullImageUndo(src)}, nil
	}
}

// perPixel builds a command that maps every pixel through fn, one row per
// progress step.
func perPixel(fn func(c [4]uint8) [4]uint8) editor.CommandWithProgress {
	return func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		if src == nil {
			return editor.Result{}, imgutil.ErrNullImage
		}
		out := image.NewNRGBA(src.Rect)
		w, h := src.Rect.Dx(), src.Rect.Dy()

		p.SetNumSteps(h)
		for y := 0; y < h; y++ {
			si := y * src.Stride
			di := y * out.Stride
			for x := 0; x < w; x++ {
				var c [4]uint8
				copy(c[:], src.Pix[si:si+4])
				c = fn(c)
				copy(out.Pix[di:di+4], c[:])
				si += 4
				di += 4
			}
			p.Step()
		}
		return editor.Result{Image: out, Undo: history.NewFullImageUndo(src)}, nil
	}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
