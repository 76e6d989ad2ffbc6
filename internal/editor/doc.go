// Package editor holds an image that is edited by background commands.
//
// An EditableImage owns one current image, its undo history and at most one
// in-flight command. Commands run on a snapshot of the image in their own
// goroutine; their result is swapped in only when the owner drains it with
// CheckAsyncResult or WaitForAsyncResult. After a result is drained the new
// pixels are copied to the image's texture in time-budgeted chunks by
// UploadToGPU, and the modification-done callback fires once the copy is
// complete.
//
// Lifecycle of one edit:
//
//	Idle ──Modify──▶ Computing ──drain──▶ PendingUpload ──upload done──▶ Idle
//	                     │
//	                     └──error or empty result──▶ Idle
//
// All methods are safe for concurrent use. Callbacks are invoked without the
// image lock held, so a callback may call back into the image.
package editor
