// SPDX-License-Identifier: MIT
package amplitude

import (
	"errors"
	"math"
	"testing"

	"ampmeter/pkg/graph"
	"ampmeter/pkg/meter"
	"ampmeter/pkg/utils"
)

const (
	testSampleRate = 44100
	testBlockSize  = 512
)

func newTestContext(t *testing.T) *graph.Context {
	t.Helper()
	ctx, err := graph.NewContext(testSampleRate, testBlockSize)
	if err != nil {
		t.Fatalf("NewContext error: %v", err)
	}
	return ctx
}

// nilSource satisfies graph.Source but has nothing to connect.
type nilSource struct{}

func (nilSource) OutputNode() graph.Node { return nil }

// wrapped mimics a higher-level object that owns a node.
type wrapped struct{ node graph.Node }

func (w wrapped) OutputNode() graph.Node { return w.node }

func TestLevelBeforeInput(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)

	if v := p.Level(); v != 0 {
		t.Errorf("Level before any render = %f, want 0", v)
	}

	utils.RenderBlocks(ctx, 3)
	if v := p.Level(); v != 0 {
		t.Errorf("Level with no input = %f, want 0", v)
	}
	if p.Node() == nil {
		t.Fatal("Node() returned nil")
	}
}

func TestSetInputWithoutOutputNodeFails(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)

	if err := p.SetInput(nil); !errors.Is(err, ErrNoOutputNode) {
		t.Errorf("SetInput(nil) = %v, want ErrNoOutputNode", err)
	}
	if err := p.SetInput(nilSource{}); !errors.Is(err, ErrNoOutputNode) {
		t.Errorf("SetInput(nilSource) = %v, want ErrNoOutputNode", err)
	}
}

func TestSetInputRejectsTypedNilNode(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)

	var m *meter.Meter
	if err := p.SetInput(m); !errors.Is(err, ErrNoOutputNode) {
		t.Errorf("SetInput(nil *Meter) = %v, want ErrNoOutputNode", err)
	}
	if err := p.SetInput(wrapped{(*utils.CaptureNode)(nil)}); !errors.Is(err, ErrNoOutputNode) {
		t.Errorf("SetInput(wrapped nil node) = %v, want ErrNoOutputNode", err)
	}
	if err := p.ConnectNode((*utils.CaptureNode)(nil)); !errors.Is(err, graph.ErrNilNode) {
		t.Errorf("ConnectNode(nil *CaptureNode) = %v, want ErrNilNode", err)
	}

	// Nothing was wired, so rendering stays safe.
	utils.RenderBlocks(ctx, 1)
	if v := p.Level(); v != 0 {
		t.Errorf("Level = %f, want 0", v)
	}
}

func TestSetInputRoutesIntoMeter(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)
	src := graph.NewConstant(1)

	if err := p.SetInput(wrapped{src}); err != nil {
		t.Fatalf("SetInput error: %v", err)
	}

	conns := ctx.Connections(src)
	if len(conns) != 1 || conns[0] != p.Node() {
		t.Errorf("source connections = %v, want the probe meter", conns)
	}
}

func TestFullScaleConvergesWithoutLag(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)
	if err := p.SetInput(graph.NewConstant(1)); err != nil {
		t.Fatal(err)
	}

	for i := range 5 {
		utils.RenderBlocks(ctx, 1)
		if v := p.Level(); math.Abs(v-1) > 1e-6 {
			t.Fatalf("read %d: Level = %f, want ~1.0", i, v)
		}
	}
}

func TestSmoothedLevelRisesGradually(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0.9)
	src := graph.NewConstant(0)
	if err := p.SetInput(src); err != nil {
		t.Fatal(err)
	}

	utils.RenderBlocks(ctx, 4)
	if v := p.Level(); v != 0 {
		t.Fatalf("Level during silence = %f, want 0", v)
	}

	src.Set(1)
	var readings []float64
	for range 8 {
		utils.RenderBlocks(ctx, 1)
		readings = append(readings, p.Level())
	}

	if readings[0] > 0.2 {
		t.Errorf("first reading after the step = %f, expected a gradual rise", readings[0])
	}
	for i := 1; i < len(readings); i++ {
		if readings[i] <= readings[i-1] {
			t.Errorf("reading %d = %f not above %f", i, readings[i], readings[i-1])
		}
	}
	if last := readings[len(readings)-1]; last >= 1 {
		t.Errorf("level reached %f already, expected lag", last)
	}
}

func TestSmoothIsIdempotent(t *testing.T) {
	for _, s := range []float64{0, 0.3, 0.8, 0.99} {
		ctxA, ctxB := newTestContext(t), newTestContext(t)
		a := New(ctxA, s)
		b := New(ctxB, s)
		b.Smooth(s)

		_ = a.SetInput(graph.NewOscillator(220, 0.7))
		_ = b.SetInput(graph.NewOscillator(220, 0.7))

		for i := range 6 {
			utils.RenderBlocks(ctxA, 1)
			utils.RenderBlocks(ctxB, 1)
			if a.Level() != b.Level() {
				t.Fatalf("s=%.2f block %d: %f != %f", s, i, a.Level(), b.Level())
			}
		}
	}
}

func TestSmoothClamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0.25, 0.25},
		{1, MaxSmoothing},
		{1.5, MaxSmoothing},
		{math.NaN(), 0},
	}

	p := New(newTestContext(t), 0)
	for _, tt := range tests {
		p.Smooth(tt.in)
		if got := p.Smoothing(); got != tt.want {
			t.Errorf("Smooth(%v) -> %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := New(newTestContext(t), 7).Smoothing(); got != MaxSmoothing {
		t.Errorf("constructor smoothing 7 -> %v, want %v", got, MaxSmoothing)
	}
}

func TestClampedSmoothingStillTracksInput(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 7)
	if err := p.SetInput(graph.NewConstant(1)); err != nil {
		t.Fatal(err)
	}

	utils.RenderBlocks(ctx, 100)

	// 1 - 0.99^100 is about 0.63.
	if v := p.Level(); v < 0.5 || v >= 1 {
		t.Errorf("Level after 100 full-scale blocks = %f, want a reading rising toward 1", v)
	}
}

func TestConnectThroughSource(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)
	capture := &utils.CaptureNode{}

	if err := p.Connect(wrapped{capture}); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	conns := ctx.Connections(p.Node())
	if len(conns) != 1 || conns[0] != capture {
		t.Fatalf("probe connections = %v, want the wrapped node", conns)
	}

	_ = p.SetInput(graph.NewConstant(0.5))
	utils.RenderBlocks(ctx, 1)
	if capture.Blocks != 1 || capture.Last[0] != 0.5 {
		t.Errorf("capture saw %d blocks, first sample %v", capture.Blocks, capture.Last)
	}
}

func TestConnectRawNode(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)
	capture := &utils.CaptureNode{}

	if err := p.ConnectNode(capture); err != nil {
		t.Fatalf("ConnectNode error: %v", err)
	}
	if conns := ctx.Connections(p.Node()); len(conns) != 1 || conns[0] != capture {
		t.Errorf("probe connections = %v, want the raw node", conns)
	}

	if err := p.Connect(nil); !errors.Is(err, graph.ErrNilNode) {
		t.Errorf("Connect(nil) = %v, want ErrNilNode", err)
	}
}

func TestProbesChain(t *testing.T) {
	ctx := newTestContext(t)
	first, second := New(ctx, 0), New(ctx, 0)
	_ = first.SetInput(graph.NewConstant(1))

	if err := first.Connect(second); err != nil {
		t.Fatalf("Connect probe to probe: %v", err)
	}
	utils.RenderBlocks(ctx, 1)

	if v := second.Level(); math.Abs(v-1) > 1e-6 {
		t.Errorf("downstream probe level = %f, want 1", v)
	}
}

func TestDisconnectFromDestination(t *testing.T) {
	ctx := newTestContext(t)
	p := New(ctx, 0)
	_ = p.SetInput(graph.NewConstant(1))

	if err := p.Connect(ctx.Destination()); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, testBlockSize)
	ctx.Render(out)
	if out[0] != 1 {
		t.Fatalf("destination got %f before Disconnect, want 1", out[0])
	}

	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect error: %v", err)
	}
	ctx.Render(out)
	if out[0] != 0 {
		t.Errorf("destination got %f after Disconnect, want 0", out[0])
	}
	if v := p.Level(); math.Abs(v-1) > 1e-6 {
		t.Errorf("probe stopped metering after Disconnect, level %f", v)
	}

	if err := p.Disconnect(); !errors.Is(err, graph.ErrNotConnected) {
		t.Errorf("second Disconnect = %v, want ErrNotConnected", err)
	}
}
