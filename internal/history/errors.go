// Package history implements a linear undo/redo stack of reversible image edits.
//
// A History holds UndoRecords in the order their commands were applied and a
// cursor pointing just past the last applied one. Undo walks the cursor back,
// Redo walks it forward, and adding a record after some undos discards the
// redo tail. There is no branching.
//
// Records swap state with the image they are applied to: a record holds
// whatever the image looked like on the other side of its command, so applying
// it twice in opposite directions reproduces the original bytes exactly.
package history

import "errors"

var (
	// ErrRegionOutOfBounds indicates a delta region that does not fit the image.
	ErrRegionOutOfBounds = errors.New("region outside image bounds")

	// ErrNullImage indicates a record was applied to a nil image.
	ErrNullImage = errors.New("cannot apply record to null image")

	// ErrCorruptRecord indicates stored pixel data could not be restored.
	ErrCorruptRecord = errors.New("undo record data is corrupt")
)
