// SPDX-License-Identifier: MIT
/*
Package graph implements a small block-based audio routing graph.

A Context owns a set of nodes and the edges between them. Each call to
Render processes every registered node exactly once, in topological order,
feeding each node the sum of its upstream outputs for the block. The
implicit Destination node is the graph's sink; whatever reaches it is copied
into the caller's output buffer.

Thread Safety:
  - Topology changes (Add, Connect, Disconnect) run on the control thread
  - Render runs on the audio thread
  - Both are serialized by the Context mutex
*/
package graph

import (
	"errors"
	"reflect"
)

var (
	ErrNilNode      = errors.New("graph: nil node")
	ErrCycle        = errors.New("graph: connection would create a cycle")
	ErrNotConnected = errors.New("graph: nodes are not connected")
	ErrBadParams    = errors.New("graph: sample rate and block size must be positive")
)

// Node processes one block of mono audio. in holds the summed output of every
// upstream node and out must be fully written. Both slices have the Context
// block size. Implementations must be pointer types so they can be compared
// by identity.
type Node interface {
	Process(in, out []float32)
}

// IsNil reports whether n is nil or a nil pointer held in a non-nil
// interface.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Source is implemented by anything that exposes an output node that can be
// connected into a graph. Every node in this package returns itself.
type Source interface {
	OutputNode() Node
}

// Initer is implemented by nodes that need the Context parameters before the
// first block. Init is called once, when the node is first added.
type Initer interface {
	Init(sampleRate float64, blockSize int)
}
