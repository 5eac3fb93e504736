// SPDX-License-Identifier: MIT
/*
Package meter provides a level-measurement node for the graph package.

A Meter passes audio through untouched while keeping a sliding analysis
window of the most recent samples. After every block it computes the RMS of
that window, blends it with the previous reading using the smoothing factor,
and publishes the result atomically. Reading the value never touches the
audio thread.
*/
package meter

import (
	"math"
	"sync/atomic"

	"ampmeter/pkg/bitint"
	"ampmeter/pkg/graph"

	"gonum.org/v1/gonum/floats"
)

// DefaultWindowSize matches the analyser size commonly used for waveform
// metering in browser audio toolkits.
const DefaultWindowSize = 256

// Options configures a Meter.
type Options struct {
	Smoothing   float64 // Weight of the previous reading, 0 = instant.
	NormalRange bool    // Report linear gain in [0,1] instead of decibels.
	WindowSize  int     // Analysis window in samples, rounded up to a power of two.
}

// Option mutates Options.
type Option func(*Options)

// WithSmoothing sets the weight of the previous reading.
func WithSmoothing(s float64) Option {
	return func(o *Options) { o.Smoothing = s }
}

// WithNormalRange selects linear gain output instead of decibels.
func WithNormalRange(normal bool) Option {
	return func(o *Options) { o.NormalRange = normal }
}

// WithWindowSize sets the analysis window. Non-positive sizes are ignored.
func WithWindowSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.WindowSize = n
		}
	}
}

// DefaultOptions returns a decibel meter with no smoothing.
func DefaultOptions() Options {
	return Options{WindowSize: DefaultWindowSize}
}

// Meter is a graph.Node that measures the loudness of whatever flows through
// it.
type Meter struct {
	normalRange bool

	smoothing atomic.Uint64 // float64 bits, written by control, read by audio.
	level     atomic.Uint64 // float64 bits, written by audio, read by control.
	reset     atomic.Bool

	// Owned by the audio thread.
	window []float64
	pos    int
	prev   float64
}

// New creates a Meter from the defaults with opts applied.
func New(opts ...Option) *Meter {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	m := &Meter{
		normalRange: o.NormalRange,
		window:      make([]float64, bitint.NextPowerOfTwo(o.WindowSize)),
	}
	m.SetSmoothing(o.Smoothing)
	return m
}

// SetSmoothing changes the smoothing factor for subsequent blocks. The value
// is stored as given; callers decide how to treat out-of-range input.
func (m *Meter) SetSmoothing(s float64) {
	m.smoothing.Store(math.Float64bits(s))
}

func (m *Meter) Smoothing() float64 {
	return math.Float64frombits(m.smoothing.Load())
}

func (m *Meter) NormalRange() bool { return m.normalRange }

func (m *Meter) WindowSize() int { return len(m.window) }

// Reset clears the analysis window and the published level. The window is
// cleared by the audio thread on its next block.
func (m *Meter) Reset() {
	m.reset.Store(true)
	m.level.Store(0)
}

// Process implements graph.Node. Audio passes through unchanged.
func (m *Meter) Process(in, out []float32) {
	copy(out, in)

	if m.reset.Swap(false) {
		clear(m.window)
		m.pos = 0
		m.prev = 0
	}

	n := len(m.window)
	for _, x := range in {
		m.window[m.pos] = float64(x)
		m.pos = (m.pos + 1) & (n - 1)
	}

	rms := math.Sqrt(floats.Dot(m.window, m.window) / float64(n))
	s := m.Smoothing()
	level := s*m.prev + (1-s)*rms
	if math.IsNaN(level) || math.IsInf(level, 0) {
		level = rms
	}
	m.prev = level
	m.level.Store(math.Float64bits(level))
}

// Level returns the latest smoothed RMS gain, independent of the range mode.
func (m *Meter) Level() float64 {
	return math.Float64frombits(m.level.Load())
}

// Value returns the latest reading: linear gain in normal range, decibels
// otherwise. Silence in decibel mode is negative infinity.
func (m *Meter) Value() float64 {
	lvl := m.Level()
	if m.normalRange {
		return lvl
	}
	return GainToDB(lvl)
}

// GainToDB converts a linear gain to decibels.
func GainToDB(g float64) float64 {
	return 20 * math.Log10(g)
}

// OutputNode implements graph.Source.
func (m *Meter) OutputNode() graph.Node { return m }

var _ graph.Source = (*Meter)(nil)
