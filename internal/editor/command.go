package editor

import (
	"image"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/history"
)

// Result is what a command hands back to the image that launched it.
//
// A nil Image means the command produced nothing (a load that failed): the
// current image is left alone. A nil Undo means the new image replaces the
// old one without history (a load): the history is reset.
type Result struct {
	Image *image.NRGBA
	Undo  history.UndoRecord
}

// Command transforms a snapshot of the current image. It must not write to
// the snapshot.
type Command func(img *image.NRGBA) (Result, error)

// CommandWithProgress is a Command that reports its progress.
type CommandWithProgress func(img *image.NRGBA, p *async.Progress) (Result, error)

// WithProgress adapts a Command that does not report progress.
func (c Command) WithProgress() CommandWithProgress {
	if c == nil {
		return nil
	}
	return func(img *image.NRGBA, _ *async.Progress) (Result, error) { return c(img) }
}
