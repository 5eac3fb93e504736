// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"
	"slices"
	"sync"
)

// Context holds the routing topology and the per-node block buffers.
type Context struct {
	sampleRate float64
	blockSize  int

	mu      sync.Mutex
	nodes   []Node             // Registration order, used to break ties in rendering.
	edges   map[Node][]Node    // Outgoing connections per node.
	outputs map[Node][]float32 // Last rendered block per node.
	inputs  map[Node][]float32 // Scratch input buffer per node.
	order   []Node             // Cached topological order, nil when stale.
	dest    *Destination
}

// NewContext creates a Context with its Destination already registered.
func NewContext(sampleRate float64, blockSize int) (*Context, error) {
	if sampleRate <= 0 || blockSize <= 0 {
		return nil, fmt.Errorf("%w (got %.1f Hz, %d frames)", ErrBadParams, sampleRate, blockSize)
	}

	c := &Context{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		edges:      make(map[Node][]Node),
		outputs:    make(map[Node][]float32),
		inputs:     make(map[Node][]float32),
		dest:       &Destination{},
	}
	c.addLocked(c.dest)
	return c, nil
}

func (c *Context) SampleRate() float64 { return c.sampleRate }

func (c *Context) BlockSize() int { return c.blockSize }

// Destination returns the implicit sink of the graph.
func (c *Context) Destination() *Destination { return c.dest }

// Add registers n with the Context. Adding a node twice is a no-op.
func (c *Context) Add(n Node) error {
	if IsNil(n) {
		return ErrNilNode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(n)
	return nil
}

func (c *Context) addLocked(n Node) {
	if _, ok := c.outputs[n]; ok {
		return
	}
	c.nodes = append(c.nodes, n)
	c.outputs[n] = make([]float32, c.blockSize)
	c.inputs[n] = make([]float32, c.blockSize)
	c.order = nil
	if i, ok := n.(Initer); ok {
		i.Init(c.sampleRate, c.blockSize)
	}
}

// Connect routes the output of src into the input of dst, registering either
// node if needed. Connecting the same pair twice has no effect.
func (c *Context) Connect(src, dst Node) error {
	if IsNil(src) || IsNil(dst) {
		return ErrNilNode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if src == dst || c.reachableLocked(dst, src) {
		return ErrCycle
	}

	c.addLocked(src)
	c.addLocked(dst)
	if slices.Contains(c.edges[src], dst) {
		return nil
	}
	c.edges[src] = append(c.edges[src], dst)
	c.order = nil
	return nil
}

// Disconnect removes the edges from src to each of dsts. With no dsts every
// outgoing edge of src is removed. If any named edge is missing nothing is
// removed.
func (c *Context) Disconnect(src Node, dsts ...Node) error {
	if src == nil {
		return ErrNilNode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(dsts) == 0 {
		delete(c.edges, src)
		c.order = nil
		return nil
	}

	for _, dst := range dsts {
		if !slices.Contains(c.edges[src], dst) {
			return fmt.Errorf("%w: %T -> %T", ErrNotConnected, src, dst)
		}
	}

	c.edges[src] = slices.DeleteFunc(c.edges[src], func(n Node) bool {
		return slices.Contains(dsts, n)
	})
	c.order = nil
	return nil
}

// Connections returns a copy of the outgoing edges of src.
func (c *Context) Connections(src Node) []Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.edges[src])
}

// reachableLocked reports whether to can be reached by following edges from.
func (c *Context) reachableLocked(from, to Node) bool {
	seen := make(map[Node]bool)
	stack := []Node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, c.edges[n]...)
	}
	return false
}

// sortLocked computes a topological order with Kahn's algorithm. Ties keep
// registration order so rendering is deterministic.
func (c *Context) sortLocked() []Node {
	indegree := make(map[Node]int, len(c.nodes))
	for _, n := range c.nodes {
		for _, dst := range c.edges[n] {
			indegree[dst]++
		}
	}

	order := make([]Node, 0, len(c.nodes))
	for len(order) < len(c.nodes) {
		progressed := false
		for _, n := range c.nodes {
			if indegree[n] != 0 || slices.Contains(order, n) {
				continue
			}
			order = append(order, n)
			for _, dst := range c.edges[n] {
				indegree[dst]--
			}
			progressed = true
		}
		if !progressed {
			// Connect rejects cycles, so this is unreachable.
			break
		}
	}
	return order
}

// Render processes one block through the whole graph and copies what reached
// the Destination into out. out shorter than the block size is filled as far
// as it goes.
func (c *Context) Render(out []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order == nil {
		c.order = c.sortLocked()
	}

	for _, n := range c.nodes {
		clear(c.inputs[n])
	}

	for _, n := range c.order {
		in, buf := c.inputs[n], c.outputs[n]
		n.Process(in, buf)
		for _, dst := range c.edges[n] {
			dstIn := c.inputs[dst]
			for i, v := range buf {
				dstIn[i] += v
			}
		}
	}

	copy(out, c.outputs[c.dest])
}
