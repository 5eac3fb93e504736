// Package utils holds signal generators and doubles shared by the tests of
// several packages.
package utils

import (
	"math"
	"sync"

	"ampmeter/pkg/graph"
)

// MockTransport records everything sent to it.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Sent...)
}

// CaptureNode is a graph node that remembers the last block it received.
type CaptureNode struct {
	Last   []float32
	Blocks int
}

func (c *CaptureNode) Process(in, out []float32) {
	c.Last = append(c.Last[:0], in...)
	c.Blocks++
	copy(out, in)
}

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// GenerateConstant returns size samples all equal to v.
func GenerateConstant(size int, v float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = v
	}
	return buffer
}

// RenderBlocks renders n blocks of ctx and discards the output.
func RenderBlocks(ctx *graph.Context, n int) {
	out := make([]float32, ctx.BlockSize())
	for range n {
		ctx.Render(out)
	}
}
