// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"math"
	"testing"
)

const (
	testSampleRate = 48000
	testBlockSize  = 64
)

// recorder captures its last input and passes it through.
type recorder struct {
	last  []float32
	calls int
	inits int
}

func (r *recorder) Init(float64, int) { r.inits++ }

func (r *recorder) Process(in, out []float32) {
	r.last = append(r.last[:0], in...)
	r.calls++
	copy(out, in)
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(testSampleRate, testBlockSize)
	if err != nil {
		t.Fatalf("NewContext error: %v", err)
	}
	return ctx
}

func TestNewContextRejectsBadParams(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		blockSize  int
	}{
		{"zero rate", 0, 64},
		{"negative rate", -44100, 64},
		{"zero block", 44100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContext(tt.sampleRate, tt.blockSize)
			if !errors.Is(err, ErrBadParams) {
				t.Errorf("expected ErrBadParams, got %v", err)
			}
		})
	}
}

func TestConnectAndConnections(t *testing.T) {
	ctx := newTestContext(t)
	src := NewConstant(0.5)
	a, b := &recorder{}, &recorder{}

	if err := ctx.Connect(src, a); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := ctx.Connect(src, b); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := ctx.Connect(src, a); err != nil {
		t.Fatalf("duplicate Connect error: %v", err)
	}

	conns := ctx.Connections(src)
	if len(conns) != 2 || conns[0] != a || conns[1] != b {
		t.Errorf("Connections = %v, want [a b]", conns)
	}
	if a.inits != 1 {
		t.Errorf("Init called %d times, want 1", a.inits)
	}
}

func TestConnectNil(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Connect(nil, ctx.Destination()); !errors.Is(err, ErrNilNode) {
		t.Errorf("expected ErrNilNode, got %v", err)
	}
	if err := ctx.Add(nil); !errors.Is(err, ErrNilNode) {
		t.Errorf("expected ErrNilNode from Add, got %v", err)
	}

	var r *recorder
	if err := ctx.Add(r); !errors.Is(err, ErrNilNode) {
		t.Errorf("expected ErrNilNode from Add of a nil pointer, got %v", err)
	}
	if err := ctx.Connect(NewConstant(1), r); !errors.Is(err, ErrNilNode) {
		t.Errorf("expected ErrNilNode connecting to a nil pointer, got %v", err)
	}
	if err := ctx.Connect(r, ctx.Destination()); !errors.Is(err, ErrNilNode) {
		t.Errorf("expected ErrNilNode connecting from a nil pointer, got %v", err)
	}
}

func TestConnectRejectsCycle(t *testing.T) {
	ctx := newTestContext(t)
	a, b, c := &recorder{}, &recorder{}, &recorder{}

	if err := ctx.Connect(a, b); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Connect(b, c); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Connect(c, a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	if err := ctx.Connect(a, a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle for self loop, got %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	ctx := newTestContext(t)
	src := NewConstant(1)
	a, b := &recorder{}, &recorder{}
	_ = ctx.Connect(src, a)
	_ = ctx.Connect(src, b)

	if err := ctx.Disconnect(src, a); err != nil {
		t.Fatalf("Disconnect error: %v", err)
	}
	if conns := ctx.Connections(src); len(conns) != 1 || conns[0] != b {
		t.Errorf("Connections after Disconnect = %v, want [b]", conns)
	}

	if err := ctx.Disconnect(src, a); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	// A missing edge among several leaves the existing ones in place.
	if err := ctx.Disconnect(src, b, a); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if conns := ctx.Connections(src); len(conns) != 1 || conns[0] != b {
		t.Errorf("Connections after failed Disconnect = %v, want [b]", conns)
	}

	c := &recorder{}
	_ = ctx.Connect(src, a)
	_ = ctx.Connect(src, c)
	if err := ctx.Disconnect(src, a, c); err != nil {
		t.Fatalf("Disconnect of two edges error: %v", err)
	}
	if conns := ctx.Connections(src); len(conns) != 1 || conns[0] != b {
		t.Errorf("Connections after multi Disconnect = %v, want [b]", conns)
	}

	if err := ctx.Disconnect(src); err != nil {
		t.Fatalf("Disconnect all error: %v", err)
	}
	if conns := ctx.Connections(src); len(conns) != 0 {
		t.Errorf("expected no connections, got %v", conns)
	}
}

func TestRenderSumsInputs(t *testing.T) {
	ctx := newTestContext(t)
	sum := &recorder{}
	_ = ctx.Connect(NewConstant(0.25), sum)
	_ = ctx.Connect(NewConstant(0.5), sum)
	_ = ctx.Connect(sum, ctx.Destination())

	out := make([]float32, testBlockSize)
	ctx.Render(out)

	for i, v := range out {
		if v != 0.75 {
			t.Fatalf("out[%d] = %f, want 0.75", i, v)
		}
	}
	if sum.calls != 1 {
		t.Errorf("node processed %d times, want 1", sum.calls)
	}
}

func TestRenderProcessesUnroutedNodes(t *testing.T) {
	ctx := newTestContext(t)
	tap := &recorder{}
	_ = ctx.Connect(NewConstant(1), tap)

	out := make([]float32, testBlockSize)
	ctx.Render(out)

	if tap.calls != 1 {
		t.Errorf("unrouted node processed %d times, want 1", tap.calls)
	}
	for _, v := range out {
		if v != 0 {
			t.Fatalf("destination received %f, want silence", v)
		}
	}
}

func TestRenderOrderFollowsEdges(t *testing.T) {
	ctx := newTestContext(t)
	// Register the downstream node first so registration order is wrong.
	down := &recorder{}
	_ = ctx.Add(down)
	gain := NewGain(2)
	_ = ctx.Connect(gain, down)
	_ = ctx.Connect(NewConstant(0.5), gain)

	ctx.Render(make([]float32, testBlockSize))

	if len(down.last) != testBlockSize || down.last[0] != 1 {
		t.Errorf("downstream saw %d samples starting %v, want 1.0 in the same block", len(down.last), down.last)
	}
}

func TestInputAndOscillator(t *testing.T) {
	ctx := newTestContext(t)
	in := &Input{}
	osc := NewOscillator(testSampleRate/4, 1)
	_ = ctx.Connect(in, ctx.Destination())
	_ = ctx.Connect(osc, ctx.Destination())
	osc.SetAmplitude(0)

	block := make([]float32, testBlockSize)
	for i := range block {
		block[i] = 0.1
	}
	in.Write(block)

	out := make([]float32, testBlockSize)
	ctx.Render(out)
	if math.Abs(float64(out[0])-0.1) > 1e-6 {
		t.Errorf("first block = %f, want 0.1", out[0])
	}

	ctx.Render(out)
	if out[0] != 0 {
		t.Errorf("input should be silent without a new Write, got %f", out[0])
	}
}

func TestBufferSource(t *testing.T) {
	ctx := newTestContext(t)
	samples := make([]float32, testBlockSize+10)
	for i := range samples {
		samples[i] = 1
	}
	src := NewBufferSource(samples)
	_ = ctx.Connect(src, ctx.Destination())

	out := make([]float32, testBlockSize)
	ctx.Render(out)
	if src.Done() {
		t.Fatal("source finished after one block")
	}

	ctx.Render(out)
	if !src.Done() {
		t.Fatal("source not finished after two blocks")
	}
	if out[9] != 1 || out[10] != 0 {
		t.Errorf("tail block = %f, %f; want 1, 0", out[9], out[10])
	}

	src.Rewind()
	if src.Done() {
		t.Error("Rewind did not restart playback")
	}
}
