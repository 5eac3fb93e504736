// SPDX-License-Identifier: MIT
/*
Package audio connects the host sound card to a graph Context.

The Engine opens a PortAudio input stream whose callback is the audio thread:
every callback downmixes the captured frames to mono, writes them into the
graph Input node and renders one block. Probes attached to the Input are
therefore updated once per device buffer.

Thread Safety:
  - The callback only touches pre-allocated buffers
  - Recording state is an atomic flag
*/
package audio

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"ampmeter/internal/config"
	applog "ampmeter/internal/log"
	"ampmeter/pkg/graph"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

var logger = applog.New("engine")

type Engine struct {
	config *config.AudioConfig
	ctx    *graph.Context
	input  *graph.Input

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	mono []float32 // Downmixed callback block.
	out  []float32 // Destination block, discarded: the meter host has no output.

	isRecording int32
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
}

// NewEngine resolves the input device and prepares the buffers. The block
// size of ctx must match cfg.FramesPerBuffer.
func NewEngine(cfg *config.AudioConfig, ctx *graph.Context) (*Engine, error) {
	if ctx.BlockSize() != cfg.FramesPerBuffer {
		return nil, fmt.Errorf("graph block size %d does not match frames per buffer %d",
			ctx.BlockSize(), cfg.FramesPerBuffer)
	}

	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	e := newEngine(cfg, ctx)
	e.inputDevice = device
	if cfg.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}
	logger.Infof("input %q, %.0f Hz, %d frames", device.Name, cfg.SampleRate, cfg.FramesPerBuffer)
	return e, nil
}

func newEngine(cfg *config.AudioConfig, ctx *graph.Context) *Engine {
	e := &Engine{
		config: cfg,
		ctx:    ctx,
		input:  &graph.Input{},
		mono:   make([]float32, cfg.FramesPerBuffer),
		out:    make([]float32, cfg.FramesPerBuffer),
	}
	_ = ctx.Add(e.input)
	return e
}

// Input is the graph node that carries captured audio.
func (e *Engine) Input() *graph.Input { return e.input }

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// processInputStream is the PortAudio callback. in is interleaved.
func (e *Engine) processInputStream(in []float32) {
	channels := e.config.InputChannels
	frames := len(in) / channels
	if frames > len(e.mono) {
		frames = len(e.mono)
	}

	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += in[i*channels+c]
		}
		e.mono[i] = sum * scale
	}
	clear(e.mono[frames:])

	e.input.Write(e.mono)
	e.ctx.Render(e.out)

	if atomic.LoadInt32(&e.isRecording) == 1 {
		e.writeRecording(in)
	}
}

// Close stops the stream before the recording so the callback never sees a
// released encoder.
func (e *Engine) Close() error {
	if err := e.StopInputStream(); err != nil {
		return err
	}
	return e.StopRecording()
}
