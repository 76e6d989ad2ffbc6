package async

import (
	"math"
	"sync/atomic"
)

// Indeterminate is the progress value meaning "busy, no estimate".
const Indeterminate float32 = -1

// Progress is a lock-free progress cell shared between a computation and the
// goroutines polling it. The zero value reports 0.
type Progress struct {
	bits  atomic.Uint32
	steps atomic.Int64
	done  atomic.Int64
}

// Set stores v clamped to [0,1]. Any negative value stores Indeterminate.
func (p *Progress) Set(v float32) {
	switch {
	case v < 0 || math.IsNaN(float64(v)):
		v = Indeterminate
	case v > 1:
		v = 1
	}
	p.bits.Store(math.Float32bits(v))
}

// SetBusy marks the computation as running without an estimate.
func (p *Progress) SetBusy() { p.Set(Indeterminate) }

// Value returns the latest reported value.
func (p *Progress) Value() float32 {
	return math.Float32frombits(p.bits.Load())
}

// SetNumSteps resets step counting to n steps. Step then advances the
// progress by 1/n each call. n <= 0 marks the progress indeterminate.
func (p *Progress) SetNumSteps(n int) {
	p.steps.Store(int64(n))
	p.done.Store(0)
	if n <= 0 {
		p.SetBusy()
		return
	}
	p.Set(0)
}

// Step records one completed step.
func (p *Progress) Step() {
	n := p.steps.Load()
	if n <= 0 {
		return
	}
	d := p.done.Add(1)
	p.Set(float32(d) / float32(n))
}
