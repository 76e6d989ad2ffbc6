package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// skipIfNoTesseract skips the test when the engine or its data is missing
func skipIfNoTesseract(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tesseract") || strings.Contains(msg, "library") || strings.Contains(msg, "language") {
		t.Skip("Tesseract not available")
	}
}

// createImageWithText renders text with basicfont scaled up for recognition
func createImageWithText(text string, scale int) *image.NRGBA {
	width := len(text)*7 + 40
	height := 40

	small := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(20, 25),
	}
	d.DrawString(text)

	big := image.NewNRGBA(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height*scale; y++ {
		for x := 0; x < width*scale; x++ {
			big.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return big
}

func TestExtractText(t *testing.T) {
	img := createImageWithText("HELLO", 4)

	result, err := ExtractText(img, "eng")
	skipIfNoTesseract(t, err)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if !strings.Contains(strings.ToUpper(result.FullText), "HELLO") {
		t.Logf("OCR read %q", result.FullText)
	}
	for _, r := range result.Regions {
		if r.Text == "" {
			t.Error("empty words should be filtered")
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence out of range: %v", r.Confidence)
		}
	}
}

func TestExtractText_NilImage(t *testing.T) {
	if _, err := ExtractText(nil, "eng"); err == nil {
		t.Error("ExtractText should fail for a nil image")
	}
}

func TestExtractTextFromRegion_Empty(t *testing.T) {
	img := createImageWithText("AB", 1)
	_, err := ExtractTextFromRegion(img, image.Rect(1000, 1000, 1100, 1100), "eng")
	if !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("got %v, want ErrEmptyRegion", err)
	}
}

func TestExtractTextFromRegion_Offsets(t *testing.T) {
	img := createImageWithText("TEXT", 4)
	rect := image.Rect(40, 20, img.Rect.Dx(), img.Rect.Dy())

	result, err := ExtractTextFromRegion(img, rect, "eng")
	skipIfNoTesseract(t, err)
	if err != nil {
		t.Fatalf("ExtractTextFromRegion failed: %v", err)
	}
	for _, r := range result.Regions {
		if r.Bounds.X1 < rect.Min.X || r.Bounds.Y1 < rect.Min.Y {
			t.Errorf("bounds %+v not offset into image coordinates", r.Bounds)
		}
	}
}

func TestDetectTextRegions_MinConfidence(t *testing.T) {
	img := createImageWithText("REGION", 4)

	all, err := DetectTextRegions(img, 0)
	skipIfNoTesseract(t, err)
	if err != nil {
		t.Fatalf("DetectTextRegions failed: %v", err)
	}
	strict, err := DetectTextRegions(img, 1.01)
	if err != nil {
		t.Fatal(err)
	}
	if strict.Count != 0 {
		t.Errorf("confidence above 1 should filter everything, got %d", strict.Count)
	}
	if all.Count != len(all.Regions) {
		t.Errorf("Count %d does not match %d regions", all.Count, len(all.Regions))
	}
}

func TestOffsetBounds(t *testing.T) {
	regions := []TextRegion{{Text: "a", Bounds: Bounds{X1: 1, Y1: 2, X2: 3, Y2: 4}}}
	offsetBounds(regions, image.Pt(10, 20))
	if regions[0].Bounds != (Bounds{X1: 11, Y1: 22, X2: 13, Y2: 24}) {
		t.Errorf("got %+v", regions[0].Bounds)
	}
}
