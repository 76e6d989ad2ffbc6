package collection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/history"
	"github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/metrics"
)

// DefaultMaxConcurrentLoads bounds how many files decode at once.
const DefaultMaxConcurrentLoads = 4

// Callbacks are invoked synchronously from Collection methods. Nil fields
// are skipped.
type Callbacks struct {
	// ModifyStart fires when a load or edit is launched on the image at index.
	ModifyStart func(index int)
	// ModifyDone fires with the current index when edits finished, after
	// undo and redo, after a save and after the current image moved.
	ModifyDone       func(index int)
	CurrentChanged   func()
	ReferenceChanged func()
	NumImagesChanged func()
}

func (c *Callbacks) modifyStart(i int) {
	if c.ModifyStart != nil {
		c.ModifyStart(i)
	}
}

func (c *Callbacks) modifyDone(i int) {
	if c.ModifyDone != nil {
		c.ModifyDone(i)
	}
}

func (c *Callbacks) currentChanged() {
	if c.CurrentChanged != nil {
		c.CurrentChanged()
	}
}

func (c *Callbacks) referenceChanged() {
	if c.ReferenceChanged != nil {
		c.ReferenceChanged()
	}
}

func (c *Callbacks) numImagesChanged() {
	if c.NumImagesChanged != nil {
		c.NumImagesChanged()
	}
}

// Collection is an ordered list of editable images.
type Collection struct {
	images    []*editor.EditableImage
	current   int
	reference int

	// set by background commands, consumed by Update
	modifyDoneRequested atomic.Bool

	callbacks Callbacks
	imageOpts []editor.Option
	loads     *semaphore.Weighted
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Collection.
type Option func(*Collection)

// WithCallbacks sets the functions notified of collection changes.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Collection) { c.callbacks = cb }
}

// WithLogger sets the logger for load and prune events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records the open image count and load times in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collection) { c.metrics = m }
}

// WithImageOptions sets the options every new image is created with.
func WithImageOptions(opts ...editor.Option) Option {
	return func(c *Collection) { c.imageOpts = append(c.imageOpts, opts...) }
}

// WithMaxConcurrentLoads bounds the number of files decoded at once.
func WithMaxConcurrentLoads(n int) Option {
	return func(c *Collection) {
		if n > 0 {
			c.loads = semaphore.NewWeighted(int64(n))
		}
	}
}

// New creates an empty collection.
func New(opts ...Option) *Collection {
	c := &Collection{
		current:   -1,
		reference: -1,
		logger:    editor.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loads == nil {
		c.loads = semaphore.NewWeighted(DefaultMaxConcurrentLoads)
	}
	return c
}

// Len returns the number of images.
func (c *Collection) Len() int { return len(c.images) }

// CurrentIndex returns the index of the current image, -1 when none.
func (c *Collection) CurrentIndex() int { return c.current }

// ReferenceIndex returns the index of the reference image, -1 when none.
func (c *Collection) ReferenceIndex() int { return c.reference }

// Image returns the image at index, or nil when index is out of range.
func (c *Collection) Image(index int) *editor.EditableImage {
	if index < 0 || index >= len(c.images) {
		return nil
	}
	return c.images[index]
}

func (c *Collection) CurrentImage() *editor.EditableImage   { return c.Image(c.current) }
func (c *Collection) ReferenceImage() *editor.EditableImage { return c.Image(c.reference) }

// Images returns the images in order.
func (c *Collection) Images() []*editor.EditableImage {
	return append([]*editor.EditableImage(nil), c.images...)
}

// Find returns the index of the image with the given ID, or -1.
func (c *Collection) Find(id string) int {
	for i, img := range c.images {
		if img.ID() == id {
			return i
		}
	}
	return -1
}

// SetCurrentImageIndex selects the current image. CurrentChanged fires when
// the index changes or force is set.
func (c *Collection) SetCurrentImageIndex(index int, force bool) {
	if index != c.current {
		c.current = index
		force = true
	}
	if force {
		c.callbacks.currentChanged()
	}
}

// SetReferenceImageIndex selects the reference image. ReferenceChanged fires
// when the index changes or force is set.
func (c *Collection) SetReferenceImageIndex(index int, force bool) {
	if force || index != c.reference {
		c.reference = index
		c.callbacks.referenceChanged()
	}
}

// LoadImages starts a background load for every path. Directories are
// expanded one level deep to the regular files with a supported extension;
// any other path is loaded as a file. The last new image becomes current.
func (c *Collection) LoadImages(paths []string) {
	files := c.expand(paths)

	for _, path := range files {
		img := editor.New(c.imageOpts...)
		img.SetFilename(path)
		if err := img.Modify(c.loadCommand(path)); err != nil {
			c.logger.Error("failed to start load", "path", path, "error", err)
			continue
		}
		c.images = append(c.images, img)
		c.callbacks.modifyStart(len(c.images) - 1)
	}

	c.metrics.SetOpenImages(len(c.images))
	c.callbacks.numImagesChanged()
	c.SetCurrentImageIndex(len(c.images)-1, false)
}

func (c *Collection) expand(paths []string) []string {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || !fi.IsDir() {
			files = append(files, p)
			continue
		}

		c.logger.Info("loading images in directory", "path", p)
		entries, err := os.ReadDir(p)
		if err != nil {
			c.logger.Error("error listing directory", "path", p, "error", err)
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !imaging.IsSupported(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
		}
	}
	return files
}

// loadCommand ignores its input and decodes path. A failed load yields no
// image, which Update later prunes.
func (c *Collection) loadCommand(path string) editor.Command {
	return func(*image.NRGBA) (editor.Result, error) {
		defer c.modifyDoneRequested.Store(true)

		if err := c.loads.Acquire(context.Background(), 1); err != nil {
			return editor.Result{}, err
		}
		defer c.loads.Release(1)

		start := time.Now()
		c.logger.Info("trying to load image", "path", path)
		img, err := imaging.Load(path)
		elapsed := time.Since(start)
		c.metrics.ObserveLoad(elapsed)
		if err != nil {
			c.logger.Error("loading image failed", "path", path, "error", err)
			return editor.Result{}, nil
		}
		c.logger.Info("loaded image", "path", path,
			"width", img.Rect.Dx(), "height", img.Rect.Dy(), "elapsed", elapsed)
		return editor.Result{Image: img}, nil
	}
}

// CloseImage removes the image at index. Out-of-range indices are ignored.
func (c *Collection) CloseImage(index int) {
	if c.Image(index) == nil {
		return
	}
	c.images = slices.Delete(c.images, index, index+1)

	c.SetCurrentImageIndex(c.currentAfterRemoval(index), true)
	c.SetReferenceImageIndex(c.referenceAfterRemoval(index), false)
	c.metrics.SetOpenImages(len(c.images))
	c.callbacks.numImagesChanged()
}

// currentAfterRemoval maps the current index across the removal of the
// image at removed. A removed current image passes the selection to the
// image that took its place, or to the new last image.
func (c *Collection) currentAfterRemoval(removed int) int {
	switch {
	case removed < c.current:
		return c.current - 1
	case c.current >= len(c.images):
		return len(c.images) - 1
	default:
		return c.current
	}
}

// referenceAfterRemoval maps the reference index across the removal of the
// image at removed. A removed reference image clears the reference.
func (c *Collection) referenceAfterRemoval(removed int) int {
	switch {
	case c.reference == removed:
		return -1
	case removed < c.reference:
		return c.reference - 1
	default:
		return c.reference
	}
}

// CloseAllImages removes every image. Running commands finish in the
// background and are discarded.
func (c *Collection) CloseAllImages() {
	c.images = nil
	c.current = -1
	c.reference = -1

	c.metrics.SetOpenImages(0)
	c.callbacks.currentChanged()
	c.callbacks.referenceChanged()
	c.callbacks.numImagesChanged()
}

// BringImageForward swaps the current image with the one before it.
func (c *Collection) BringImageForward() {
	if len(c.images) == 0 || c.current <= 0 {
		return
	}
	c.swap(c.current, c.current-1)
}

// SendImageBackward swaps the current image with the one after it.
func (c *Collection) SendImageBackward() {
	if len(c.images) == 0 || c.current < 0 || c.current >= len(c.images)-1 {
		return
	}
	c.swap(c.current, c.current+1)
}

func (c *Collection) swap(from, to int) {
	c.images[from], c.images[to] = c.images[to], c.images[from]
	switch c.reference {
	case from:
		c.reference = to
	case to:
		c.reference = from
	}
	c.current = to

	c.callbacks.modifyDone(c.current)
	c.callbacks.currentChanged()
}

// ModifyImage launches cmd on the current image. A command that returns no
// undo record gets a full-image undo of its input.
func (c *Collection) ModifyImage(cmd editor.Command) error {
	if cmd == nil {
		return editor.ErrNilCommand
	}
	return c.ModifyImageWithProgress(cmd.WithProgress())
}

// ModifyImageWithProgress is ModifyImage for a command reporting progress.
func (c *Collection) ModifyImageWithProgress(cmd editor.CommandWithProgress) error {
	img := c.CurrentImage()
	if img == nil {
		return ErrNoCurrentImage
	}
	if cmd == nil {
		return editor.ErrNilCommand
	}

	err := img.ModifyWithProgress(func(src *image.NRGBA, p *async.Progress) (editor.Result, error) {
		defer c.modifyDoneRequested.Store(true)

		res, err := cmd(src, p)
		if err != nil {
			return res, err
		}
		if res.Image != nil && res.Undo == nil {
			res.Undo = history.NewFullImageUndo(src)
		}
		return res, nil
	})
	if err != nil {
		return err
	}
	c.callbacks.modifyStart(c.current)
	return nil
}

// Undo reverts the current image's latest edit.
func (c *Collection) Undo() (bool, error) {
	img := c.CurrentImage()
	if img == nil {
		return false, ErrNoCurrentImage
	}
	ok, err := img.Undo()
	if ok {
		c.callbacks.modifyDone(c.current)
	}
	return ok, err
}

// Redo reapplies the current image's latest undone edit.
func (c *Collection) Redo() (bool, error) {
	img := c.CurrentImage()
	if img == nil {
		return false, ErrNoCurrentImage
	}
	ok, err := img.Redo()
	if ok {
		c.callbacks.modifyDone(c.current)
	}
	return ok, err
}

// SaveImage writes the current image scaled by 2^exposure and encoded with
// the given gamma, sRGB curve and dithering.
func (c *Collection) SaveImage(path string, exposure, gamma float64, sRGB, dither bool) error {
	img := c.CurrentImage()
	if img == nil {
		return ErrNoCurrentImage
	}
	if path == "" {
		return fmt.Errorf("failed to save image: empty path")
	}

	opts := imaging.SaveOptions{
		Gain:   math.Pow(2, exposure),
		Gamma:  gamma,
		SRGB:   sRGB,
		Dither: dither,
	}
	if err := img.Save(path, opts); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	c.callbacks.modifyDone(c.current)
	return nil
}

// Update drains finished commands, advances texture uploads and then runs
// RunRequestedCallbacks.
func (c *Collection) Update() {
	for _, img := range c.images {
		// failures stay in the image's LastError
		_ = img.CheckAsyncResult()
		img.UploadToGPU()
	}
	c.RunRequestedCallbacks()
}

// RunRequestedCallbacks drops images that are idle and null (failed loads)
// and fires the callbacks owed since the previous call.
func (c *Collection) RunRequestedCallbacks() {
	pruned := false
	refChanged := false
	for i := 0; i < len(c.images); {
		img := c.images[i]
		if !img.CanModify() || !img.IsNull() {
			i++
			continue
		}

		c.logger.Debug("removing empty image", "image", img.ID(), "path", img.Filename())
		c.images = slices.Delete(c.images, i, i+1)
		c.current = c.currentAfterRemoval(i)
		if ref := c.referenceAfterRemoval(i); ref != c.reference {
			c.reference = ref
			refChanged = true
		}
		pruned = true
	}

	if pruned {
		c.metrics.SetOpenImages(len(c.images))
		c.callbacks.currentChanged()
		if refChanged {
			c.callbacks.referenceChanged()
		}
		c.callbacks.numImagesChanged()
	}

	if c.modifyDoneRequested.Swap(false) {
		c.callbacks.modifyDone(c.current)
	}
}

// Wait blocks until no image has a running command.
func (c *Collection) Wait() {
	for _, img := range c.images {
		img.WaitForAsyncResult()
	}
}
