// SPDX-License-Identifier: MIT
package graph

import (
	"math"
	"sync"
	"sync/atomic"
)

// atomicFloat is a float64 that can be set from the control thread and read
// from the audio thread without locking.
type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Destination is the sink of a Context. It passes its summed input through
// so Render can hand it to the device.
type Destination struct{}

func (d *Destination) Process(in, out []float32) { copy(out, in) }
func (d *Destination) OutputNode() Node          { return d }

// Input injects externally captured audio into the graph. The host writes a
// block before each Render; the node replays it once and then outputs silence
// until the next Write.
type Input struct {
	mu    sync.Mutex
	block []float32
	fresh bool
}

// Write stores the next block. Samples beyond the block size are dropped.
func (n *Input) Write(samples []float32) {
	n.mu.Lock()
	if len(n.block) < len(samples) {
		n.block = make([]float32, len(samples))
	}
	n.block = n.block[:copy(n.block[:cap(n.block)], samples)]
	n.fresh = true
	n.mu.Unlock()
}

func (n *Input) Process(_, out []float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.fresh {
		clear(out)
		return
	}
	k := copy(out, n.block)
	clear(out[k:])
	n.fresh = false
}

func (n *Input) OutputNode() Node { return n }

// Constant outputs a fixed DC value.
type Constant struct{ value atomicFloat }

func NewConstant(v float64) *Constant {
	c := &Constant{}
	c.value.Store(v)
	return c
}

func (c *Constant) Set(v float64)  { c.value.Store(v) }
func (c *Constant) Value() float64 { return c.value.Load() }

func (c *Constant) Process(_, out []float32) {
	v := float32(c.value.Load())
	for i := range out {
		out[i] = v
	}
}

func (c *Constant) OutputNode() Node { return c }

// Oscillator is a sine generator.
type Oscillator struct {
	freq       atomicFloat
	amp        atomicFloat
	sampleRate float64
	phase      float64
}

func NewOscillator(freq, amp float64) *Oscillator {
	o := &Oscillator{}
	o.freq.Store(freq)
	o.amp.Store(amp)
	return o
}

func (o *Oscillator) Init(sampleRate float64, _ int) { o.sampleRate = sampleRate }

func (o *Oscillator) SetFrequency(hz float64) { o.freq.Store(hz) }
func (o *Oscillator) SetAmplitude(a float64)  { o.amp.Store(a) }

func (o *Oscillator) Process(_, out []float32) {
	if o.sampleRate <= 0 {
		clear(out)
		return
	}
	step := 2 * math.Pi * o.freq.Load() / o.sampleRate
	amp := o.amp.Load()
	for i := range out {
		out[i] = float32(amp * math.Sin(o.phase))
		o.phase += step
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}

func (o *Oscillator) OutputNode() Node { return o }

// Gain scales its input by a linear factor.
type Gain struct{ gain atomicFloat }

func NewGain(g float64) *Gain {
	n := &Gain{}
	n.gain.Store(g)
	return n
}

func (g *Gain) Set(v float64)  { g.gain.Store(v) }
func (g *Gain) Value() float64 { return g.gain.Load() }

func (g *Gain) Process(in, out []float32) {
	v := float32(g.gain.Load())
	for i, x := range in {
		out[i] = x * v
	}
}

func (g *Gain) OutputNode() Node { return g }

// BufferSource plays a preloaded mono buffer once, then outputs silence.
type BufferSource struct {
	samples []float32
	pos     atomic.Int64
}

func NewBufferSource(samples []float32) *BufferSource {
	return &BufferSource{samples: samples}
}

func (b *BufferSource) Process(_, out []float32) {
	pos := int(b.pos.Load())
	k := 0
	if pos < len(b.samples) {
		k = copy(out, b.samples[pos:])
	}
	clear(out[k:])
	b.pos.Store(int64(pos + k))
}

// Done reports whether every sample has been played.
func (b *BufferSource) Done() bool { return int(b.pos.Load()) >= len(b.samples) }

// Rewind restarts playback from the first sample.
func (b *BufferSource) Rewind() { b.pos.Store(0) }

func (b *BufferSource) Len() int { return len(b.samples) }

func (b *BufferSource) OutputNode() Node { return b }

var (
	_ Source = (*Destination)(nil)
	_ Source = (*Input)(nil)
	_ Source = (*Constant)(nil)
	_ Source = (*Oscillator)(nil)
	_ Source = (*Gain)(nil)
	_ Source = (*BufferSource)(nil)
	_ Initer = (*Oscillator)(nil)
)
