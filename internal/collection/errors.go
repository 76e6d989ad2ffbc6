package collection

import "errors"

// ErrNoCurrentImage is returned by operations on the current image when
// none is selected.
var ErrNoCurrentImage = errors.New("no current image")
