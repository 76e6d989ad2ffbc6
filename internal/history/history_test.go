package history

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

// solidImage returns a w x h image filled with c.
func solidImage(t *testing.T, w, h int, c color.NRGBA) *image.NRGBA {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// brighten returns a copy of img with every channel raised by d, and the
// record that reverses it.
func brighten(t *testing.T, img *image.NRGBA, d uint8) (*image.NRGBA, UndoRecord) {
	t.Helper()
	out := image.NewNRGBA(img.Rect)
	for i, v := range img.Pix {
		out.Pix[i] = v + d
	}
	return out, NewFullImageUndo(img)
}

// paintRect returns a copy of img with rect painted c and a delta record.
func paintRect(t *testing.T, img *image.NRGBA, rect image.Rectangle, c color.NRGBA) (*image.NRGBA, UndoRecord) {
	t.Helper()
	rec, err := NewDeltaUndo(img, rect)
	if err != nil {
		t.Fatalf("NewDeltaUndo failed: %v", err)
	}
	out := image.NewNRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			out.SetNRGBA(x, y, c)
		}
	}
	return out, rec
}

func TestHistory_Empty(t *testing.T) {
	h := New(0)
	if h.HasUndo() || h.HasRedo() {
		t.Error("empty history should have neither undo nor redo")
	}
	if h.IsModified() {
		t.Error("empty history should not be modified")
	}

	img := solidImage(t, 2, 2, color.NRGBA{1, 2, 3, 255})
	got, ok, err := h.Undo(img)
	if ok || err != nil || got != img {
		t.Errorf("Undo on empty: got (%p, %v, %v), want (img, false, nil)", got, ok, err)
	}
	got, ok, err = h.Redo(img)
	if ok || err != nil || got != img {
		t.Errorf("Redo on empty: got (%p, %v, %v), want (img, false, nil)", got, ok, err)
	}
}

func TestHistory_RoundTrip(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		h := New(0)
		original := solidImage(t, 4, 3, color.NRGBA{10, 20, 30, 255})
		img := original

		for i := 0; i < n; i++ {
			var rec UndoRecord
			if i%2 == 0 {
				img, rec = brighten(t, img, 5)
			} else {
				img, rec = paintRect(t, img, image.Rect(1, 1, 3, 2), color.NRGBA{uint8(i), 0, 0, 255})
			}
			h.Add(rec)
		}

		for i := 0; i < n; i++ {
			var ok bool
			var err error
			img, ok, err = h.Undo(img)
			if !ok || err != nil {
				t.Fatalf("n=%d undo %d: ok=%v err=%v", n, i, ok, err)
			}
		}

		if !bytes.Equal(img.Pix, original.Pix) {
			t.Errorf("n=%d: image after undoing everything differs from original", n)
		}
		if h.HasUndo() {
			t.Errorf("n=%d: HasUndo should be false after undoing everything", n)
		}
		if !h.HasRedo() {
			t.Errorf("n=%d: HasRedo should be true after undoing everything", n)
		}
	}
}

func TestHistory_UndoRedoConverges(t *testing.T) {
	h := New(0)
	img := solidImage(t, 5, 5, color.NRGBA{0, 0, 0, 255})
	img, rec := paintRect(t, img, image.Rect(0, 0, 2, 2), color.NRGBA{255, 0, 0, 255})
	h.Add(rec)
	img, rec = brighten(t, img, 1)
	h.Add(rec)
	after := append([]uint8(nil), img.Pix...)

	for cycle := 0; cycle < 4; cycle++ {
		var err error
		img, _, err = h.Undo(img)
		if err != nil {
			t.Fatal(err)
		}
		img, _, err = h.Undo(img)
		if err != nil {
			t.Fatal(err)
		}
		img, _, err = h.Redo(img)
		if err != nil {
			t.Fatal(err)
		}
		img, _, err = h.Redo(img)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(img.Pix, after) {
			t.Fatalf("cycle %d: image drifted after undo/redo", cycle)
		}
	}
}

func TestHistory_AddTruncatesRedo(t *testing.T) {
	h := New(0)
	img := solidImage(t, 2, 2, color.NRGBA{0, 0, 0, 255})
	for i := 0; i < 3; i++ {
		var rec UndoRecord
		img, rec = brighten(t, img, 1)
		h.Add(rec)
	}
	if h.HasRedo() {
		t.Error("HasRedo should be false after Add")
	}

	img, _, _ = h.Undo(img)
	if !h.HasRedo() {
		t.Error("HasRedo should be true after one undo")
	}
	if !h.HasUndo() || h.Cursor() != 2 {
		t.Errorf("after one undo: HasUndo=%v cursor=%d, want true 2", h.HasUndo(), h.Cursor())
	}

	img, _, _ = h.Undo(img)
	_, rec := brighten(t, img, 9)
	h.Add(rec)
	if h.Len() != 2 || h.Cursor() != 2 {
		t.Errorf("after Add: len=%d cursor=%d, want 2 2", h.Len(), h.Cursor())
	}
	if h.HasRedo() {
		t.Error("redo tail should be discarded by Add")
	}
}

func TestHistory_SavedMarker(t *testing.T) {
	h := New(0)
	img := solidImage(t, 2, 2, color.NRGBA{0, 0, 0, 255})
	img, rec := brighten(t, img, 1)
	h.Add(rec)
	if !h.IsModified() {
		t.Error("should be modified after Add")
	}

	h.MarkSaved()
	if h.IsModified() {
		t.Error("should not be modified right after MarkSaved")
	}

	img, _, _ = h.Undo(img)
	if !h.IsModified() {
		t.Error("should be modified after undo")
	}
	img, _, _ = h.Redo(img)
	if h.IsModified() {
		t.Error("redo back to the saved state should not be modified")
	}

	img, rec = brighten(t, img, 1)
	h.Add(rec)
	if !h.IsModified() {
		t.Error("should be modified after a new Add")
	}

	// saved state discarded with the redo tail
	img, _, _ = h.Undo(img)
	img, _, _ = h.Undo(img)
	_, rec = brighten(t, img, 3)
	h.Add(rec)
	h.Undo(img)
	if !h.IsModified() {
		t.Error("unreachable saved state must read as modified")
	}
}

func TestHistory_Limit(t *testing.T) {
	h := New(2)
	original := solidImage(t, 2, 2, color.NRGBA{0, 0, 0, 255})
	img := original
	h.MarkSaved()
	for i := 0; i < 5; i++ {
		var rec UndoRecord
		img, rec = brighten(t, img, 1)
		h.Add(rec)
	}
	if h.Len() != 2 || h.Cursor() != 2 {
		t.Fatalf("len=%d cursor=%d, want 2 2", h.Len(), h.Cursor())
	}

	img, _, _ = h.Undo(img)
	img, _, _ = h.Undo(img)
	if h.HasUndo() {
		t.Error("only the limit's worth of records can be undone")
	}
	if img.Pix[0] != 3 {
		t.Errorf("pixel after undoing the retained records: got %d, want 3", img.Pix[0])
	}
	if !h.IsModified() {
		t.Error("saved state dropped by the limit must read as modified")
	}
}

func TestDeltaUndo_OutOfBounds(t *testing.T) {
	img := solidImage(t, 4, 4, color.NRGBA{})
	_, err := NewDeltaUndo(img, image.Rect(2, 2, 6, 6))
	if !errors.Is(err, ErrRegionOutOfBounds) {
		t.Errorf("got %v, want ErrRegionOutOfBounds", err)
	}
	if _, err := NewDeltaUndo(nil, image.Rect(0, 0, 1, 1)); !errors.Is(err, ErrNullImage) {
		t.Errorf("nil image: got %v, want ErrNullImage", err)
	}

	rec, err := NewDeltaUndo(img, image.Rect(0, 0, 4, 4))
	if err != nil {
		t.Fatal(err)
	}
	small := solidImage(t, 2, 2, color.NRGBA{})
	if _, err := rec.Undo(small); !errors.Is(err, ErrRegionOutOfBounds) {
		t.Errorf("Undo on smaller image: got %v, want ErrRegionOutOfBounds", err)
	}
}

func TestDeltaUndo_DoesNotModifyInput(t *testing.T) {
	before := solidImage(t, 3, 3, color.NRGBA{1, 1, 1, 255})
	after, rec := paintRect(t, before, image.Rect(1, 1, 2, 2), color.NRGBA{200, 0, 0, 255})
	snapshot := append([]uint8(nil), after.Pix...)

	restored, err := rec.Undo(after)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after.Pix, snapshot) {
		t.Error("Undo modified its input image")
	}
	if !bytes.Equal(restored.Pix, before.Pix) {
		t.Error("Undo did not restore the pre-command pixels")
	}
}

func TestFullImageUndo_Swap(t *testing.T) {
	a := solidImage(t, 1, 1, color.NRGBA{1, 0, 0, 255})
	b := solidImage(t, 2, 2, color.NRGBA{2, 0, 0, 255})
	rec := NewFullImageUndo(a)

	got, err := rec.Undo(b)
	if err != nil || got != a {
		t.Fatalf("Undo: got (%p, %v), want a", got, err)
	}
	got, err = rec.Redo(a)
	if err != nil || got != b {
		t.Fatalf("Redo: got (%p, %v), want b", got, err)
	}
}
