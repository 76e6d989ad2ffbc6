package editor

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/history"
	"github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/metrics"
)

// DefaultUploadBudget bounds the time one UploadToGPU call spends copying.
const DefaultUploadBudget = 5 * time.Millisecond

// ErrNilCommand is returned by Modify when given a nil command.
var ErrNilCommand = errors.New("nil command")

// State is the phase of the image's edit cycle.
type State int

const (
	// Idle: no command is running and no upload is owed.
	Idle State = iota
	// Computing: a command is running on a snapshot.
	Computing
	// PendingUpload: the result is in place and its texture upload is not
	// finished.
	PendingUpload
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Computing:
		return "computing"
	case PendingUpload:
		return "pending_upload"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EditableImage is an image with undo history and background edits.
type EditableImage struct {
	id string

	mu       sync.Mutex
	filename string
	img      *image.NRGBA
	history  *history.History

	// the in-flight or upload-pending edit; nil when idle
	task      *async.Task[Result]
	retrieved bool
	lastErr   error

	texture     TextureSink
	budget      time.Duration
	uploadStart time.Time
	onDone      func()

	historyLimit int
	chunkSize    int
	stats        *async.Task[*Statistics]
	statsExp     float64
	statsDirty   bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an EditableImage.
type Option func(*EditableImage)

// WithLogger sets the logger. The image ID is added to every record.
func WithLogger(l *slog.Logger) Option {
	return func(e *EditableImage) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records command and upload metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *EditableImage) { e.metrics = m }
}

// WithHistoryLimit caps the number of undo steps. n <= 0 is unbounded.
func WithHistoryLimit(n int) Option {
	return func(e *EditableImage) { e.historyLimit = n }
}

// WithChunkSize sets the chunk size of the default LazyTexture.
func WithChunkSize(n int) Option {
	return func(e *EditableImage) { e.chunkSize = n }
}

// WithTexture replaces the default LazyTexture.
func WithTexture(t TextureSink) Option {
	return func(e *EditableImage) {
		if t != nil {
			e.texture = t
		}
	}
}

// WithUploadBudget sets how long one Update may spend uploading.
func WithUploadBudget(d time.Duration) Option {
	return func(e *EditableImage) {
		if d > 0 {
			e.budget = d
		}
	}
}

// New creates a null image.
func New(opts ...Option) *EditableImage {
	e := &EditableImage{
		id:         uuid.NewString(),
		budget:     DefaultUploadBudget,
		statsDirty: true,
		logger:     NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.texture == nil {
		e.texture = NewLazyTexture(e.chunkSize)
	}
	e.history = history.New(e.historyLimit)
	e.logger = e.logger.With("image", e.id)
	return e
}

// ID returns the image's unique identifier.
func (e *EditableImage) ID() string { return e.id }

// Filename returns the path the image was loaded from or last saved to.
func (e *EditableImage) Filename() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filename
}

// SetFilename changes the path reported by Filename.
func (e *EditableImage) SetFilename(name string) {
	e.mu.Lock()
	e.filename = name
	e.mu.Unlock()
}

// Texture returns the sink the image uploads to.
func (e *EditableImage) Texture() TextureSink { return e.texture }

// SetModifyDoneCallback sets the function called once per edit cycle: when
// the result has been uploaded, or when the command failed or produced
// nothing.
func (e *EditableImage) SetModifyDoneCallback(fn func()) {
	e.mu.Lock()
	e.onDone = fn
	e.mu.Unlock()
}

// Modify launches cmd on a snapshot of the current image.
func (e *EditableImage) Modify(cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	return e.ModifyWithProgress(cmd.WithProgress())
}

// ModifyWithProgress launches cmd on a snapshot of the current image. Any
// running command is waited for and drained first. If that command failed,
// its error is returned and cmd is not launched.
func (e *EditableImage) ModifyWithProgress(cmd CommandWithProgress) error {
	if cmd == nil {
		return ErrNilCommand
	}

	e.mu.Lock()
	e.waitReadyLocked()
	fire, err := e.drainLocked()
	if err != nil {
		e.unlockAndNotify(fire)
		return fmt.Errorf("previous edit failed: %w", err)
	}
	fire = e.closeCycleLocked() || fire

	snapshot := e.img
	task := async.NewWithProgress(func(p *async.Progress) (Result, error) {
		return cmd(snapshot, p)
	})
	e.task = task
	e.retrieved = false
	e.lastErr = nil
	if err := task.Compute(); err != nil {
		e.task = nil
		e.unlockAndNotify(fire)
		return fmt.Errorf("failed to launch command: %w", err)
	}
	e.metrics.CommandStarted()
	e.logger.Debug("command launched")
	e.unlockAndNotify(fire)
	return nil
}

// CheckAsyncResult drains a finished command without blocking. It returns
// the command's error, if it failed.
func (e *EditableImage) CheckAsyncResult() error {
	e.mu.Lock()
	fire, err := e.drainLocked()
	e.unlockAndNotify(fire)
	return err
}

// WaitForAsyncResult blocks until the running command, if any, has finished
// and drains it.
func (e *EditableImage) WaitForAsyncResult() error {
	e.mu.Lock()
	e.waitReadyLocked()
	fire, err := e.drainLocked()
	e.unlockAndNotify(fire)
	return err
}

// UploadToGPU copies one budgeted chunk of the current image to the texture
// and reports whether the texture is complete. It does nothing while a
// command is computing.
func (e *EditableImage) UploadToGPU() bool {
	e.mu.Lock()
	if e.task != nil && !e.retrieved {
		e.mu.Unlock()
		return false
	}
	done, fire := e.uploadLocked()
	e.unlockAndNotify(fire)
	return done
}

// Undo reverts the latest edit. It reports false when there is nothing to
// undo.
func (e *EditableImage) Undo() (bool, error) {
	return e.step("undo", (*history.History).Undo)
}

// Redo reapplies the latest undone edit. It reports false when there is
// nothing to redo.
func (e *EditableImage) Redo() (bool, error) {
	return e.step("redo", (*history.History).Redo)
}

func (e *EditableImage) step(op string, apply func(*history.History, *image.NRGBA) (*image.NRGBA, bool, error)) (bool, error) {
	e.mu.Lock()
	e.waitReadyLocked()
	fire, err := e.drainLocked()
	if err != nil {
		e.unlockAndNotify(fire)
		return false, fmt.Errorf("previous edit failed: %w", err)
	}
	fire = e.closeCycleLocked() || fire

	img, ok, err := apply(e.history, e.img)
	switch {
	case err != nil:
		err = fmt.Errorf("failed to %s: %w", op, err)
	case ok:
		e.img = img
		e.changedLocked()
		e.metrics.HistoryOp(op)
		e.logger.Debug(op, "cursor", e.history.Cursor(), "len", e.history.Len())
	}
	e.unlockAndNotify(fire)
	return ok, err
}

// Load replaces the image with the file at path, synchronously, and resets
// the history. On failure the image is unchanged.
func (e *EditableImage) Load(path string) error {
	e.mu.Lock()
	e.waitReadyLocked()
	fire, _ := e.drainLocked()
	fire = e.closeCycleLocked() || fire

	start := time.Now()
	img, err := imaging.Load(path)
	e.metrics.ObserveLoad(time.Since(start))
	if err == nil {
		e.img = img
		e.filename = path
		e.history = history.New(e.historyLimit)
		e.changedLocked()
		e.logger.Info("image loaded", "path", path, "elapsed", time.Since(start))
	}
	e.unlockAndNotify(fire)
	return err
}

// Save writes the current image to path and marks the current history
// position as saved. The undo and redo stacks are untouched.
func (e *EditableImage) Save(path string, opts imaging.SaveOptions) error {
	e.mu.Lock()
	e.waitReadyLocked()
	fire, err := e.drainLocked()
	if err != nil {
		e.unlockAndNotify(fire)
		return fmt.Errorf("previous edit failed: %w", err)
	}

	if e.img == nil {
		err = imaging.ErrNullImage
	} else if err = imaging.Save(e.img, path, opts); err == nil {
		e.history.MarkSaved()
		e.filename = path
		e.logger.Info("image saved", "path", path)
	}
	e.unlockAndNotify(fire)
	return err
}

// CanModify reports whether no command is running or awaiting upload.
func (e *EditableImage) CanModify() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task == nil
}

// State reports whether a command is running, awaiting upload or neither.
func (e *EditableImage) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *EditableImage) stateLocked() State {
	switch {
	case e.task == nil:
		return Idle
	case e.retrieved:
		return PendingUpload
	default:
		return Computing
	}
}

// Progress returns 1 when idle and the running command's progress
// otherwise. Indeterminate is reported while the upload is pending.
func (e *EditableImage) Progress() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task == nil {
		return 1
	}
	return e.task.Progress()
}

// LastError returns the error of the most recent failed command, cleared
// when the next command is launched.
func (e *EditableImage) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// IsModified reports whether the image differs from its last saved state.
//
// This and the other queries below drain a finished command first. A
// failure found that way is kept in LastError rather than returned.
func (e *EditableImage) IsModified() bool {
	_ = e.CheckAsyncResult()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.IsModified()
}

// HasUndo reports whether there is an edit to undo.
func (e *EditableImage) HasUndo() bool {
	_ = e.CheckAsyncResult()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.HasUndo()
}

// HasRedo reports whether there is an undone edit to redo.
func (e *EditableImage) HasRedo() bool {
	_ = e.CheckAsyncResult()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.HasRedo()
}

// IsNull reports whether the image holds no pixels.
func (e *EditableImage) IsNull() bool {
	_ = e.CheckAsyncResult()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.img == nil
}

// Image returns the current image. The caller must not modify it.
func (e *EditableImage) Image() *image.NRGBA {
	_ = e.CheckAsyncResult()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.img
}

// Size returns the current image's dimensions, zero when null.
func (e *EditableImage) Size() (width, height int) {
	img := e.Image()
	if img == nil {
		return 0, 0
	}
	return img.Rect.Dx(), img.Rect.Dy()
}

// Statistics returns a launched task computing the statistics of the current
// image at exposure. The task is reused until the image or the exposure
// changes.
func (e *EditableImage) Statistics(exposure float64) *async.Task[*Statistics] {
	_ = e.CheckAsyncResult()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stats != nil && !e.statsDirty && e.statsExp == exposure {
		return e.stats
	}
	img := e.img
	e.stats = async.NewWithProgress(func(p *async.Progress) (*Statistics, error) {
		return ComputeStatistics(img, exposure, p)
	})
	// fresh task, cannot already be launched
	_ = e.stats.Compute()
	e.statsExp = exposure
	e.statsDirty = false
	return e.stats
}

// waitReadyLocked blocks until the current task, if any, has finished. The
// lock is released while waiting.
func (e *EditableImage) waitReadyLocked() {
	for e.task != nil && !e.retrieved && !e.task.Ready() {
		t := e.task
		e.mu.Unlock()
		t.Get()
		e.mu.Lock()
	}
}

// drainLocked retrieves a finished task's result exactly once. It reports
// whether the edit cycle ended and the callback is owed.
func (e *EditableImage) drainLocked() (fire bool, err error) {
	if e.task == nil || e.retrieved || !e.task.Ready() {
		return false, nil
	}

	res, err := e.task.Get()
	if err != nil {
		e.task = nil
		e.lastErr = err
		e.metrics.CommandFinished(metrics.OutcomeFailed)
		e.logger.Error("command failed", "error", err)
		return true, err
	}
	if res.Image == nil {
		e.task = nil
		e.metrics.CommandFinished(metrics.OutcomeEmpty)
		e.logger.Debug("command produced no image")
		return true, nil
	}

	e.retrieved = true
	if res.Undo == nil {
		e.history = history.New(e.historyLimit)
	} else {
		e.history.Add(res.Undo)
	}
	e.img = res.Image
	e.changedLocked()
	e.metrics.CommandFinished(metrics.OutcomeOK)

	e.task.SetProgress(async.Indeterminate)
	e.uploadStart = time.Now()
	_, fire = e.uploadLocked()
	return fire, nil
}

// uploadLocked pushes one chunk and ends a pending cycle when the texture is
// complete.
func (e *EditableImage) uploadLocked() (done, fire bool) {
	done = e.texture.Upload(e.img, e.budget)
	if done && e.task != nil && e.retrieved {
		e.metrics.ObserveUpload(time.Since(e.uploadStart))
		e.task = nil
		e.retrieved = false
		return true, true
	}
	return done, false
}

// closeCycleLocked ends a cycle whose upload is still pending. The texture
// stays dirty and is completed by later uploads.
func (e *EditableImage) closeCycleLocked() bool {
	if e.task == nil || !e.retrieved {
		return false
	}
	e.task = nil
	e.retrieved = false
	return true
}

func (e *EditableImage) changedLocked() {
	e.texture.SetDirty()
	e.statsDirty = true
}

// unlockAndNotify releases the lock and runs the callback if fire is set.
func (e *EditableImage) unlockAndNotify(fire bool) {
	cb := e.onDone
	e.mu.Unlock()
	if fire && cb != nil {
		cb()
	}
}
