package editor

import (
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// DefaultChunkSize is the number of pixels LazyTexture copies per chunk.
const DefaultChunkSize = 1 << 20

// TextureSink receives the pixels of an image after every change.
type TextureSink interface {
	// SetDirty marks the sink out of date. The next Upload starts over.
	SetDirty()

	// Upload copies part of img, working for roughly budget, and reports
	// whether the sink now holds all of img. It returns true immediately
	// when the sink is clean.
	Upload(img *image.NRGBA, budget time.Duration) bool
}

// LazyTexture is a CPU-side mirror of an image, filled scanline chunk by
// scanline chunk.
type LazyTexture struct {
	// ChunkSize is the number of pixels copied between budget checks. At
	// least one full row is copied per chunk.
	ChunkSize int

	mu       sync.Mutex
	pix      *image.NRGBA
	dirty    bool
	nextLine int
}

// NewLazyTexture returns a dirty texture. chunkSize <= 0 selects
// DefaultChunkSize.
func NewLazyTexture(chunkSize int) *LazyTexture {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &LazyTexture{ChunkSize: chunkSize, dirty: true}
}

func (t *LazyTexture) SetDirty() {
	t.mu.Lock()
	t.dirty = true
	t.nextLine = 0
	t.mu.Unlock()
}

func (t *LazyTexture) Upload(img *image.NRGBA, budget time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dirty {
		return true
	}
	if img == nil {
		t.pix = nil
		t.dirty = false
		return true
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if t.nextLine == 0 && (t.pix == nil || t.pix.Rect.Dx() != w || t.pix.Rect.Dy() != h) {
		t.pix = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	rows := 1
	if w > 0 && t.ChunkSize > w {
		rows = t.ChunkSize / w
	}

	start := time.Now()
	for t.nextLine < h {
		end := min(t.nextLine+rows, h)
		dst := image.Rect(0, t.nextLine, w, end)
		draw.Draw(t.pix, dst, img, image.Pt(b.Min.X, b.Min.Y+t.nextLine), draw.Src)
		t.nextLine = end
		if time.Since(start) >= budget {
			break
		}
	}

	if t.nextLine >= h {
		t.dirty = false
		t.nextLine = 0
		return true
	}
	return false
}

// Uploaded reports whether the mirror holds the latest image.
func (t *LazyTexture) Uploaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.dirty
}

// Progress returns the fraction of rows copied so far, 1 when clean.
func (t *LazyTexture) Progress() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return 1
	}
	if t.pix == nil || t.pix.Rect.Dy() == 0 {
		return 0
	}
	return float32(t.nextLine) / float32(t.pix.Rect.Dy())
}

// Pixels returns a copy of the mirror, or nil when nothing was uploaded.
// While an upload is in progress the copy mixes old and new rows.
func (t *LazyTexture) Pixels() *image.NRGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pix == nil {
		return nil
	}
	return imaging.Clone(t.pix)
}
