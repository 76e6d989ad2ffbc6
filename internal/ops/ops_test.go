package ops

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/history"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// createTestImage builds a small image with a gradient so every op has
// something to change
func createTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), 100, 255})
		}
	}
	return img
}

func run(t *testing.T, cmd editor.CommandWithProgress, src *image.NRGBA) (editor.Result, *async.Progress) {
	t.Helper()
	p := &async.Progress{}
	res, err := cmd(src, p)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if res.Image == nil {
		t.Fatal("command returned no image")
	}
	if res.Undo == nil {
		t.Fatal("command returned no undo record")
	}
	return res, p
}

func TestBuild_AllOperations(t *testing.T) {
	region := Params{"x1": 2.0, "y1": 2.0, "x2": 10.0, "y2": 8.0}
	params := map[string]Params{
		"crop":          region,
		"rotate":        {"degrees": 90.0},
		"brightness":    {"percent": 20.0},
		"contrast":      {"percent": -20.0},
		"saturation":    {"percent": 50.0},
		"hue":           {"degrees": 45.0},
		"exposure":      {"stops": 1.0},
		"resize":        {"width": 8.0},
		"fill_region":   {"x1": 2.0, "y1": 2.0, "x2": 10.0, "y2": 8.0, "color": "#00FF00"},
		"invert_region": region,
		"blur_region":   region,
		"grid_overlay":  {"spacing": 5.0},
	}

	for _, op := range List() {
		t.Run(op.Name, func(t *testing.T) {
			cmd, err := Build(op.Name, params[op.Name])
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			src := createTestImage(16, 12)
			orig := bytes.Clone(src.Pix)

			res, p := run(t, cmd, src)
			if !bytes.Equal(src.Pix, orig) {
				t.Error("command modified its input")
			}
			if p.Value() != 1 && p.Value() != async.Indeterminate {
				t.Errorf("progress: got %v", p.Value())
			}

			back, err := res.Undo.Undo(res.Image)
			if err != nil {
				t.Fatalf("Undo failed: %v", err)
			}
			if !bytes.Equal(back.Pix, orig) {
				t.Error("undo did not restore the input")
			}
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		params Params
	}{
		{"crop missing corner", "crop", Params{"x1": 0.0, "y1": 0.0, "x2": 4.0}},
		{"crop empty", "crop", Params{"x1": 2.0, "y1": 2.0, "x2": 2.0, "y2": 5.0}},
		{"rotate 45", "rotate", Params{"degrees": 45.0}},
		{"rotate fractional", "rotate", Params{"degrees": 90.5}},
		{"brightness too high", "brightness", Params{"percent": 150.0}},
		{"gamma zero", "gamma", Params{"gamma": 0.0}},
		{"blur negative", "blur", Params{"sigma": -1.0}},
		{"median too big", "median", Params{"radius": 100.0}},
		{"threshold range", "threshold", Params{"level": 300.0}},
		{"edge thresholds swapped", "edge_detect", Params{"threshold_low": 200.0, "threshold_high": 100.0}},
		{"resize nothing", "resize", Params{}},
		{"resize bad filter", "resize", Params{"width": 4.0, "filter": "bicubic"}},
		{"resize too large", "resize", Params{"width": 1_000_000.0, "height": 1_000_000.0}},
		{"fill bad color", "fill_region", Params{"x1": 0.0, "y1": 0.0, "x2": 1.0, "y2": 1.0, "color": "red"}},
		{"grid spacing", "grid_overlay", Params{"spacing": 1.0}},
		{"wrong type", "blur", Params{"sigma": "big"}},
		{"bool type", "grid_overlay", Params{"show_coordinates": "yes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.op, tt.params)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("got %v, want ErrInvalidParameter", err)
			}
		})
	}

	if _, err := Build("posterize", nil); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("unknown op: got %v, want ErrUnknownOperation", err)
	}
}

func TestNullImage(t *testing.T) {
	for _, op := range []string{"invert", "blur", "edge_detect"} {
		cmd, err := Build(op, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := cmd(nil, &async.Progress{}); !errors.Is(err, imgutil.ErrNullImage) {
			t.Errorf("%s on null image: got %v, want ErrNullImage", op, err)
		}
	}
}

func TestResize(t *testing.T) {
	src := createTestImage(16, 12)

	half, err := Resize(8, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	res, _ := run(t, half, src)
	if res.Image.Rect.Dx() != 8 || res.Image.Rect.Dy() != 6 {
		t.Errorf("resize bounds: got %v, want 8x6", res.Image.Rect)
	}

	// one huge dimension passes construction but not the derived size
	wide, err := Resize(imgutil.MaxPixels/2, 0, "nearest")
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if _, err := wide(src, &async.Progress{}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("derived size above limit: got %v, want ErrInvalidParameter", err)
	}

	if _, err := Resize(1_000_000, 1_000_000, ""); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("1000000x1000000: got %v, want ErrInvalidParameter", err)
	}
}

func TestCropAndRotate(t *testing.T) {
	src := createTestImage(16, 12)

	crop, _ := Crop(image.Rect(4, 2, 10, 7))
	res, _ := run(t, crop, src)
	if res.Image.Rect != image.Rect(0, 0, 6, 5) {
		t.Errorf("crop bounds: got %v", res.Image.Rect)
	}
	if res.Image.NRGBAAt(0, 0) != src.NRGBAAt(4, 2) {
		t.Error("crop origin pixel mismatch")
	}

	outside, _ := Crop(image.Rect(10, 10, 20, 20))
	if _, err := outside(src, &async.Progress{}); !errors.Is(err, ErrRegionOutOfBounds) {
		t.Errorf("crop outside: got %v, want ErrRegionOutOfBounds", err)
	}

	rot, _ := Rotate(-90)
	res, _ = run(t, rot, src)
	if res.Image.Rect.Dx() != 12 || res.Image.Rect.Dy() != 16 {
		t.Errorf("rotate bounds: got %v", res.Image.Rect)
	}
}

func TestExposureAndInvert(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for i := range src.Pix {
		src.Pix[i] = 100
	}

	exp, _ := Exposure(1)
	res, p := run(t, exp, src)
	if got := res.Image.NRGBAAt(1, 1); got != (color.NRGBA{200, 200, 200, 100}) {
		t.Errorf("exposure: got %v", got)
	}
	if p.Value() != 1 {
		t.Errorf("exposure progress: got %v, want 1", p.Value())
	}

	res, _ = run(t, Invert(), src)
	if got := res.Image.NRGBAAt(0, 0); got != (color.NRGBA{155, 155, 155, 100}) {
		t.Errorf("invert: got %v", got)
	}
}

func TestRegionOps(t *testing.T) {
	src := createTestImage(16, 12)
	rect := image.Rect(3, 3, 7, 6)

	fill, _ := FillRegion(rect, color.NRGBA{1, 2, 3, 255})
	res, _ := run(t, fill, src)

	if _, ok := res.Undo.(*history.DeltaUndo); !ok {
		t.Errorf("region edit should record a delta, got %T", res.Undo)
	}
	if res.Image.NRGBAAt(3, 3) != (color.NRGBA{1, 2, 3, 255}) {
		t.Error("region not filled")
	}
	if res.Image.NRGBAAt(7, 6) != src.NRGBAAt(7, 6) || res.Image.NRGBAAt(0, 0) != src.NRGBAAt(0, 0) {
		t.Error("pixels outside the region changed")
	}

	// redo on the restored image reproduces the edit
	back, _ := res.Undo.Undo(res.Image)
	again, err := res.Undo.Redo(back)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again.Pix, res.Image.Pix) {
		t.Error("redo did not reproduce the edit")
	}

	inv, _ := InvertRegion(rect)
	res, _ = run(t, inv, src)
	want := src.NRGBAAt(4, 4)
	want.R, want.G, want.B = 255-want.R, 255-want.G, 255-want.B
	if res.Image.NRGBAAt(4, 4) != want {
		t.Error("region not inverted")
	}

	big, _ := InvertRegion(image.Rect(0, 0, 100, 100))
	if _, err := big(src, &async.Progress{}); !errors.Is(err, ErrRegionOutOfBounds) {
		t.Errorf("oversized region: got %v, want ErrRegionOutOfBounds", err)
	}
}

func TestEdgeDetect(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(0)
			if x >= 10 {
				v = 255
			}
			src.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}

	cmd, err := EdgeDetect(50, 150)
	if err != nil {
		t.Fatal(err)
	}
	res, p := run(t, cmd, src)
	if p.Value() != 1 {
		t.Errorf("progress: got %v, want 1", p.Value())
	}

	edge := res.Image.NRGBAAt(9, 10).R == 255 || res.Image.NRGBAAt(10, 10).R == 255
	if !edge {
		t.Error("boundary between halves was not detected")
	}
	if res.Image.NRGBAAt(3, 10).R != 0 || res.Image.NRGBAAt(16, 10).R != 0 {
		t.Error("flat areas should have no edges")
	}
	if res.Image.NRGBAAt(3, 10).A != 255 {
		t.Error("edge image should be opaque")
	}
}

func TestGridOverlay(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 30, 30))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	cmd, err := GridOverlay(10, false, "#FF0000")
	if err != nil {
		t.Fatal(err)
	}
	res, _ := run(t, cmd, src)
	if got := res.Image.NRGBAAt(10, 5); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("vertical line: got %v", got)
	}
	if got := res.Image.NRGBAAt(5, 20); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("horizontal line: got %v", got)
	}
	if got := res.Image.NRGBAAt(5, 5); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("off-grid pixel: got %v", got)
	}

	labeled, _ := GridOverlay(10, true, "")
	res, _ = run(t, labeled, src)
	white := 0
	for y := 11; y < 25; y++ {
		for x := 11; x < 30; x++ {
			if c := res.Image.NRGBAAt(x, y); c.R == 255 && c.G == 255 && c.B == 255 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("coordinate label was not drawn")
	}
}

func TestParams(t *testing.T) {
	p := Params{"n": 3.0, "f": 2.5, "b": true, "s": "x"}

	if v, err := p.Int("n", 0); err != nil || v != 3 {
		t.Errorf("Int: %v %v", v, err)
	}
	if _, err := p.Int("f", 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("fractional Int: got %v", err)
	}
	if v, _ := p.Int("missing", 7); v != 7 {
		t.Errorf("default Int: got %d", v)
	}
	if v, _ := p.Bool("b", false); !v {
		t.Error("Bool")
	}
	if v, _ := p.String("s", ""); v != "x" {
		t.Error("String")
	}
	if _, err := p.String("n", ""); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("String of number: got %v", err)
	}
}
