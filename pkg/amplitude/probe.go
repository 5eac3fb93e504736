// SPDX-License-Identifier: MIT
//
// Package amplitude reports the loudness of any audio source in a graph as a
// single normalized number, for sketches that react to sound volume.
//
//	ctx, _ := graph.NewContext(44100, 512)
//	amp := amplitude.New(ctx, 0.8)
//	_ = amp.SetInput(player)
//	level := amp.Level() // read from the draw loop
package amplitude

import (
	"errors"
	"math"

	applog "ampmeter/internal/log"
	"ampmeter/pkg/graph"
	"ampmeter/pkg/meter"
)

// ErrNoOutputNode is returned when an input has no node to connect from.
var ErrNoOutputNode = errors.New("amplitude: source has no output node")

// MaxSmoothing is the largest smoothing factor a Probe applies. At 1 the
// reading would never move again.
const MaxSmoothing = 0.99

var logger = applog.New("amplitude")

// Probe wraps a normal-range meter node living in a graph Context.
type Probe struct {
	ctx   *graph.Context
	meter *meter.Meter
}

// New creates a Probe in ctx with the given smoothing factor. A smoothing of
// 0 reports every analysis frame as is. Extra meter options such as the
// window size apply before the probe's own settings.
func New(ctx *graph.Context, smoothing float64, opts ...meter.Option) *Probe {
	opts = append(opts,
		meter.WithNormalRange(true),
		meter.WithSmoothing(clampSmoothing(smoothing)),
	)
	m := meter.New(opts...)
	// Registering the meter makes it analyse even before anything is routed
	// to it, so Level is defined from the start.
	_ = ctx.Add(m)
	return &Probe{ctx: ctx, meter: m}
}

// clampSmoothing keeps s inside [0, MaxSmoothing]. NaN is treated as no
// smoothing.
func clampSmoothing(s float64) float64 {
	switch {
	case math.IsNaN(s):
		logger.Debugf("smoothing NaN replaced by 0")
		return 0
	case s < 0:
		logger.Debugf("smoothing %.3f clamped to 0", s)
		return 0
	case s > MaxSmoothing:
		logger.Debugf("smoothing %.3f clamped to %.2f", s, MaxSmoothing)
		return MaxSmoothing
	}
	return s
}

// SetInput routes the output of src into the probe.
func (p *Probe) SetInput(src graph.Source) error {
	if src == nil {
		return ErrNoOutputNode
	}
	n := src.OutputNode()
	if graph.IsNil(n) {
		return ErrNoOutputNode
	}
	return p.ctx.Connect(n, p.meter)
}

// Level returns the most recently published smoothed amplitude. It never
// blocks and never triggers analysis itself.
func (p *Probe) Level() float64 {
	return p.meter.Value()
}

// Smooth changes the smoothing factor for subsequent analysis frames.
func (p *Probe) Smooth(s float64) {
	p.meter.SetSmoothing(clampSmoothing(s))
}

// Smoothing returns the factor currently applied.
func (p *Probe) Smoothing() float64 {
	return p.meter.Smoothing()
}

// Connect routes the probe's output into the output node of dst. Every node
// type of the graph package is itself a Source, as is another Probe.
func (p *Probe) Connect(dst graph.Source) error {
	if dst == nil {
		return graph.ErrNilNode
	}
	return p.ConnectNode(dst.OutputNode())
}

// ConnectNode routes the probe's output directly into n.
func (p *Probe) ConnectNode(n graph.Node) error {
	return p.ctx.Connect(p.meter, n)
}

// Disconnect removes the probe's route to the context destination.
func (p *Probe) Disconnect() error {
	return p.ctx.Disconnect(p.meter, p.ctx.Destination())
}

// Node exposes the underlying meter so other components can connect to or
// from the probe without going through this API.
func (p *Probe) Node() *meter.Meter {
	return p.meter
}

// OutputNode implements graph.Source.
func (p *Probe) OutputNode() graph.Node {
	return p.meter
}

var _ graph.Source = (*Probe)(nil)
