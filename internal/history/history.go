package history

import "image"

// History is a bounded linear undo/redo stack.
//
// History is not safe for concurrent use; its owner serializes access.
type History struct {
	records []UndoRecord
	cursor  int // number of applied records
	saved   int // cursor value at the last save, -1 if unreachable
	limit   int
}

// New creates an empty history keeping at most limit records. A limit of
// zero or less keeps every record.
func New(limit int) *History {
	return &History{limit: limit}
}

// Add appends r at the cursor, discarding any records that could have been
// redone, and advances the cursor.
func (h *History) Add(r UndoRecord) {
	if h.saved > h.cursor {
		// the saved state lived in the redo tail
		h.saved = -1
	}
	clear(h.records[h.cursor:])
	h.records = append(h.records[:h.cursor], r)
	h.cursor++

	if h.limit > 0 && len(h.records) > h.limit {
		drop := len(h.records) - h.limit
		h.records = append([]UndoRecord(nil), h.records[drop:]...)
		h.cursor -= drop
		if h.saved >= 0 {
			h.saved -= drop
			if h.saved < 0 {
				h.saved = -1
			}
		}
	}
}

// Undo reverses the record before the cursor. It returns ok=false, and img
// unchanged, when there is nothing to undo. If the record cannot be applied
// the cursor does not move.
func (h *History) Undo(img *image.NRGBA) (*image.NRGBA, bool, error) {
	if h.cursor == 0 {
		return img, false, nil
	}
	out, err := h.records[h.cursor-1].Undo(img)
	if err != nil {
		return img, false, err
	}
	h.cursor--
	return out, true, nil
}

// Redo re-applies the record at the cursor. It returns ok=false, and img
// unchanged, when there is nothing to redo.
func (h *History) Redo(img *image.NRGBA) (*image.NRGBA, bool, error) {
	if h.cursor == len(h.records) {
		return img, false, nil
	}
	out, err := h.records[h.cursor].Redo(img)
	if err != nil {
		return img, false, err
	}
	h.cursor++
	return out, true, nil
}

// MarkSaved records the current position as the saved state.
func (h *History) MarkSaved() { h.saved = h.cursor }

// IsModified reports whether the image differs from its saved state.
func (h *History) IsModified() bool { return h.cursor != h.saved }

// HasUndo reports whether Undo would do anything.
func (h *History) HasUndo() bool { return h.cursor > 0 }

// HasRedo reports whether Redo would do anything.
func (h *History) HasRedo() bool { return h.cursor < len(h.records) }

// Len returns the number of records held.
func (h *History) Len() int { return len(h.records) }

// Cursor returns the number of applied records.
func (h *History) Cursor() int { return h.cursor }

// Limit returns the configured depth limit.
func (h *History) Limit() int { return h.limit }
