// Package collection manages the ordered set of open images.
//
// A Collection tracks a current and a reference image, loads files in the
// background and routes edits, undo and redo to the current image. Changes
// are reported through Callbacks.
//
// Collection is not safe for concurrent use: all methods must be called from
// one goroutine, typically the loop that also calls Update. Background loads
// and edits only set an atomic flag that Update turns into a single batched
// ModifyDone callback.
package collection
