package history

import (
	"fmt"
	"image"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// UndoRecord is the data needed to reverse one committed edit and to re-apply
// it afterwards. Undo is called on the post-command image and returns the
// pre-command image; Redo is called on the pre-command image and returns the
// post-command image. Neither may modify the image passed in.
//
// The only implementations are FullImageUndo and DeltaUndo.
type UndoRecord interface {
	Undo(img *image.NRGBA) (*image.NRGBA, error)
	Redo(img *image.NRGBA) (*image.NRGBA, error)

	record()
}

// FullImageUndo keeps a whole image from the other side of the edit.
// It is the default record for commands that change dimensions or touch
// every pixel.
type FullImageUndo struct {
	img *image.NRGBA
}

// NewFullImageUndo creates a record holding the pre-command snapshot. The
// snapshot is shared, not copied: images are never modified in place.
func NewFullImageUndo(before *image.NRGBA) *FullImageUndo {
	return &FullImageUndo{img: before}
}

func (u *FullImageUndo) Undo(img *image.NRGBA) (*image.NRGBA, error) { return u.swap(img) }
func (u *FullImageUndo) Redo(img *image.NRGBA) (*image.NRGBA, error) { return u.swap(img) }

func (u *FullImageUndo) swap(img *image.NRGBA) (*image.NRGBA, error) {
	if u.img == nil {
		return nil, ErrCorruptRecord
	}
	prev := u.img
	u.img = img
	return prev, nil
}

func (*FullImageUndo) record() {}

// DeltaUndo keeps only the pixels of one rectangle, zstd-compressed. It suits
// edits that leave the rest of the image and its dimensions untouched.
type DeltaUndo struct {
	rect image.Rectangle
	data []byte
}

// NewDeltaUndo captures rect of the pre-command image.
func NewDeltaUndo(before *image.NRGBA, rect image.Rectangle) (*DeltaUndo, error) {
	if before == nil {
		return nil, ErrNullImage
	}
	if rect.Empty() || !rect.In(before.Bounds()) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrRegionOutOfBounds, rect, before.Bounds())
	}
	return &DeltaUndo{rect: rect, data: compressRegion(before, rect)}, nil
}

// Rect returns the region covered by the record.
func (u *DeltaUndo) Rect() image.Rectangle { return u.rect }

func (u *DeltaUndo) Undo(img *image.NRGBA) (*image.NRGBA, error) { return u.swap(img) }
func (u *DeltaUndo) Redo(img *image.NRGBA) (*image.NRGBA, error) { return u.swap(img) }

func (u *DeltaUndo) swap(img *image.NRGBA) (*image.NRGBA, error) {
	if img == nil {
		return nil, ErrNullImage
	}
	if !u.rect.In(img.Bounds()) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrRegionOutOfBounds, u.rect, img.Bounds())
	}

	stored, err := decoder().DecodeAll(u.data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	rowBytes := u.rect.Dx() * 4
	if len(stored) != rowBytes*u.rect.Dy() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCorruptRecord, len(stored), rowBytes*u.rect.Dy())
	}

	current := compressRegion(img, u.rect)

	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	for y := 0; y < u.rect.Dy(); y++ {
		off := out.PixOffset(u.rect.Min.X, u.rect.Min.Y+y)
		copy(out.Pix[off:off+rowBytes], stored[y*rowBytes:(y+1)*rowBytes])
	}

	u.data = current
	return out, nil
}

func (*DeltaUndo) record() {}

var (
	codecOnce sync.Once
	zenc      *zstd.Encoder
	zdec      *zstd.Decoder
)

func initCodec() {
	codecOnce.Do(func() {
		var err error
		zenc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			panic(fmt.Sprintf("history: failed to create zstd encoder: %v", err))
		}
		zdec, err = zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("history: failed to create zstd decoder: %v", err))
		}
	})
}

func encoder() *zstd.Encoder {
	initCodec()
	return zenc
}

func decoder() *zstd.Decoder {
	initCodec()
	return zdec
}

// compressRegion packs the rows of rect into a contiguous buffer and
// compresses it.
func compressRegion(img *image.NRGBA, rect image.Rectangle) []byte {
	rowBytes := rect.Dx() * 4
	raw := make([]byte, 0, rowBytes*rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		raw = append(raw, img.Pix[off:off+rowBytes]...)
	}
	return encoder().EncodeAll(raw, nil)
}
