package ops

import (
	"fmt"
	"image"
	"math"

	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Params holds operation arguments decoded from JSON.
type Params map[string]any

// Float returns the named number, or def when absent.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParameter, name)
	}
}

// Int returns the named integer, or def when absent.
func (p Params) Int(name string, def int) (int, error) {
	f, err := p.Float(name, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParameter, name)
	}
	return int(f), nil
}

// Bool returns the named boolean, or def when absent.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidParameter, name)
	}
	return b, nil
}

// String returns the named string, or def when absent.
func (p Params) String(name, def string) (string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidParameter, name)
	}
	return s, nil
}

// Rect reads x1, y1, x2 and y2 as a rectangle.
func (p Params) Rect() (image.Rectangle, error) {
	var c [4]int
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		if _, ok := p[name]; !ok {
			return image.Rectangle{}, fmt.Errorf("%w: %s is required", ErrInvalidParameter, name)
		}
		v, err := p.Int(name, 0)
		if err != nil {
			return image.Rectangle{}, err
		}
		c[i] = v
	}
	return image.Rect(c[0], c[1], c[2], c[3]), nil
}

func inRange(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %g and %g, got %g", ErrInvalidParameter, name, lo, hi, v)
	}
	return nil
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidParameter, name, v)
	}
	return nil
}

// checkRegion validates a region against the image a command runs on.
func checkRegion(img *image.NRGBA, rect image.Rectangle) error {
	if img == nil {
		return imgutil.ErrNullImage
	}
	if !rect.In(img.Bounds()) {
		return fmt.Errorf("%w: %v not within %v", ErrRegionOutOfBounds, rect, img.Bounds())
	}
	return nil
}

func nonEmpty(rect image.Rectangle) error {
	if rect.Empty() {
		return fmt.Errorf("%w: region %v is empty", ErrInvalidParameter, rect)
	}
	return nil
}
