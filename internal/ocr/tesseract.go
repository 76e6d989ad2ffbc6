package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "eng"

// ErrEmptyRegion is returned for a region that does not overlap the image.
var ErrEmptyRegion = errors.New("region does not overlap the image")

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the complete results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text as a single string with original spacing/newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes and confidence scores.
	// May be empty if bounding box extraction fails (text will still be in FullText).
	Regions []TextRegion `json:"regions"`
}

// newClient returns a Tesseract client loaded with img.
func newClient(img image.Image, language string) (*gosseract.Client, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to read")
	}
	if language == "" {
		language = DefaultLanguage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return client, nil
}

// ExtractText performs OCR on img and returns the recognized text along with
// word-level bounding boxes.
//
// Empty words are filtered out. If word-level bounding box extraction fails,
// the full text is still returned with an empty Regions slice.
func ExtractText(img image.Image, language string) (*OCRResult, error) {
	client, err := newClient(img, language)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds:     boundsOf(box.Box),
		})
	}

	return &OCRResult{FullText: text, Regions: regions}, nil
}

// ExtractTextFromRegion performs OCR on rect only. Bounding boxes in the
// result are in the coordinates of img, not of the crop.
func ExtractTextFromRegion(img image.Image, rect image.Rectangle, language string) (*OCRResult, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to read")
	}
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}

	result, err := ExtractText(imaging.Crop(img, rect), language)
	if err != nil {
		return nil, err
	}

	offsetBounds(result.Regions, rect.Min)
	return result, nil
}

func offsetBounds(regions []TextRegion, off image.Point) {
	for i := range regions {
		regions[i].Bounds.X1 += off.X
		regions[i].Bounds.Y1 += off.Y
		regions[i].Bounds.X2 += off.X
		regions[i].Bounds.Y2 += off.Y
	}
}

// DetectTextRegionsResult contains text region locations without the actual text content.
type DetectTextRegionsResult struct {
	Regions []TextRegionBox `json:"regions"`
	Count   int             `json:"count"`
}

// TextRegionBox represents a detected text region's location without its content.
type TextRegionBox struct {
	Bounds Bounds `json:"bounds"`

	// Confidence is Tesseract's confidence score for this being a text region (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// DetectTextRegions finds block-level text regions whose confidence is at
// least minConfidence (0.0 to 1.0).
func DetectTextRegions(img image.Image, minConfidence float64) (*DetectTextRegionsResult, error) {
	client, err := newClient(img, DefaultLanguage)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	// block level is faster than word level
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to get text regions: %w", err)
	}

	regions := make([]TextRegionBox, 0)
	for _, box := range boxes {
		confidence := float64(box.Confidence) / 100.0
		if confidence < minConfidence {
			continue
		}
		regions = append(regions, TextRegionBox{
			Bounds:     boundsOf(box.Box),
			Confidence: confidence,
		})
	}

	return &DetectTextRegionsResult{Regions: regions, Count: len(regions)}, nil
}
