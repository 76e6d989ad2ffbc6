package ops

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/history"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// EdgeDetect runs Canny edge detection: edges become white, everything else
// black. Gradients between low and high (0-255) are kept only next to a
// gradient above high.
//
// The stages are BT.601 luminance, a 5x5 gaussian blur, Sobel gradients,
// non-maximum suppression along the gradient direction and hysteresis
// thresholding. Progress advances one step per row of each stage.
func EdgeDetect(low, high int) (editor.CommandWithProgress, error) {
	if low < 0 || high > 255 || low > high {
		return nil, fmt.Errorf("%w: need 0 <= low <= high <= 255, got %d and %d", ErrInvalidParameter, low, high)
	}
	return func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		if src == nil {
			return editor.Result{}, imgutil.ErrNullImage
		}
		out := canny(src, float64(low)/255, float64(high)/255, p)
		return editor.Result{Image: out, Undo: history.NewFullImageUndo(src)}, nil
	}, nil
}

// plane is a single-channel float image stored row-major.
type plane struct {
	w, h int
	v    []float64
}

func newPlane(w, h int) *plane { return &plane{w: w, h: h, v: make([]float64, w*h)} }

// at reads with coordinates clamped to the border.
func (p *plane) at(x, y int) float64 {
	x = max(0, min(x, p.w-1))
	y = max(0, min(y, p.h-1))
	return p.v[y*p.w+x]
}

var gaussian5 = [5][5]float64{
	{1, 4, 7, 4, 1},
	{4, 16, 26, 16, 4},
	{7, 26, 41, 26, 7},
	{4, 16, 26, 16, 4},
	{1, 4, 7, 4, 1},
}

const gaussian5Sum = 273.0

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func canny(src *image.NRGBA, low, high float64, p *async.Progress) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	p.SetNumSteps(4 * h)

	gray := newPlane(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			r, g, b := float64(row[4*x]), float64(row[4*x+1]), float64(row[4*x+2])
			gray.v[y*w+x] = (0.299*r + 0.587*g + 0.114*b) / 255
		}
	}

	blurred := newPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					sum += gray.at(x+kx, y+ky) * gaussian5[ky+2][kx+2]
				}
			}
			blurred.v[y*w+x] = sum / gaussian5Sum
		}
		p.Step()
	}

	mag := newPlane(w, h)
	dir := newPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := blurred.at(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			mag.v[y*w+x] = math.Hypot(gx, gy)
			dir.v[y*w+x] = math.Atan2(gy, gx)
		}
		p.Step()
	}

	thin := newPlane(w, h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag.v[y*w+x]
			n1, n2 := neighbors(mag, x, y, dir.v[y*w+x])
			if m >= n1 && m >= n2 {
				thin.v[y*w+x] = m
			}
		}
		p.Step()
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := thin.v[y*w+x]
			if v >= high || (v >= low && strongNeighbor(thin, x, y, high)) {
				i := out.PixOffset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = 0xff, 0xff, 0xff
			}
		}
		p.Step()
	}
	return out
}

// neighbors returns the two magnitudes along the gradient direction angle.
func neighbors(mag *plane, x, y int, angle float64) (float64, float64) {
	const e = math.Pi / 8
	switch {
	case (angle >= -e && angle < e) || angle >= 7*e || angle < -7*e:
		return mag.at(x-1, y), mag.at(x+1, y)
	case (angle >= e && angle < 3*e) || (angle >= -7*e && angle < -5*e):
		return mag.at(x+1, y-1), mag.at(x-1, y+1)
	case (angle >= 3*e && angle < 5*e) || (angle >= -5*e && angle < -3*e):
		return mag.at(x, y-1), mag.at(x, y+1)
	default:
		return mag.at(x-1, y-1), mag.at(x+1, y+1)
	}
}

func strongNeighbor(thin *plane, x, y int, high float64) bool {
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			if thin.at(x+kx, y+ky) >= high {
				return true
			}
		}
	}
	return false
}
