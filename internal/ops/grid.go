package ops

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/image-edit-mcp/internal/editor"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// DefaultGridColor is semi-transparent red.
const DefaultGridColor = "#FF000080"

var (
	labelColor   = color.NRGBA{255, 255, 255, 255}
	labelBgColor = color.NRGBA{0, 0, 0, 180}
)

// GridOverlay draws grid lines every spacing pixels, blended over the image,
// and optionally labels each intersection with its "x,y" coordinates.
func GridOverlay(spacing int, showCoordinates bool, hexColor string) (editor.CommandWithProgress, error) {
	if spacing < 2 {
		return nil, fmt.Errorf("%w: spacing must be at least 2, got %d", ErrInvalidParameter, spacing)
	}
	if hexColor == "" {
		hexColor = DefaultGridColor
	}
	lineColor, err := imgutil.ParseHexColor(hexColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	return whole(func(src *image.NRGBA) image.Image {
		out := imaging.Clone(src)
		drawGrid(out, spacing, lineColor)
		if showCoordinates {
			drawLabels(out, spacing)
		}
		return out
	}), nil
}

func drawGrid(img *image.NRGBA, spacing int, c color.NRGBA) {
	b := img.Bounds()
	line := image.NewUniform(c)
	for x := b.Min.X + spacing; x < b.Max.X; x += spacing {
		draw.Draw(img, image.Rect(x, b.Min.Y, x+1, b.Max.Y), line, image.Point{}, draw.Over)
	}
	for y := b.Min.Y + spacing; y < b.Max.Y; y += spacing {
		// skip intersections already drawn by the vertical pass
		for x := b.Min.X; x < b.Max.X; x++ {
			if (x-b.Min.X)%spacing == 0 && x != b.Min.X {
				continue
			}
			draw.Draw(img, image.Rect(x, y, x+1, y+1), line, image.Point{}, draw.Over)
		}
	}
}

func drawLabels(img *image.NRGBA, spacing int) {
	face := basicfont.Face7x13
	b := img.Bounds()
	bg := image.NewUniform(labelBgColor)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	for y := b.Min.Y + spacing; y < b.Max.Y; y += spacing {
		for x := b.Min.X + spacing; x < b.Max.X; x += spacing {
			label := fmt.Sprintf("%d,%d", x-b.Min.X, y-b.Min.Y)
			width := d.MeasureString(label).Ceil()
			box := image.Rect(x+1, y+1, x+width+3, y+face.Height+2).Intersect(b)
			draw.Draw(img, box, bg, image.Point{}, draw.Over)

			d.Dot = fixed.P(x+2, y+1+face.Ascent)
			d.DrawString(label)
		}
	}
}
