// Package ocr extracts text from in-memory images using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). Images are
// handed to Tesseract as PNG bytes, so the text of an edited image can be read
// before it is ever saved.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The default language is English ("eng"). Other languages use their
// Tesseract codes, e.g. "deu" or "chi_sim".
//
// # Performance
//
// OCR is CPU-intensive. Crop to the region of interest with
// ExtractTextFromRegion when possible.
//
// If bounding box extraction fails, ExtractText still returns the extracted
// text with an empty Regions slice.
package ocr
