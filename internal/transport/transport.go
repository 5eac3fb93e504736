// SPDX-License-Identifier: MIT
package transport

import "time"

// Transport delivers level frames to sketches. Implementations must be safe
// for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// LevelReader is what the Publisher samples; *amplitude.Probe satisfies it.
type LevelReader interface {
	Level() float64
	Smoothing() float64
}

// LevelFrame is one published reading.
type LevelFrame struct {
	Seq       uint32    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Level     float64   `json:"level"`
	Smoothing float64   `json:"smoothing"`
}
