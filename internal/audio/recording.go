package audio

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordBitDepth = 32

// StartRecording writes the raw captured input to a 32-bit PCM WAV file
// until StopRecording.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	channels := e.config.InputChannels
	e.wavEncoder = wav.NewEncoder(file, int(e.config.SampleRate), recordBitDepth, channels, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  int(e.config.SampleRate),
		},
		SourceBitDepth: recordBitDepth,
		Data:           make([]int, e.config.FramesPerBuffer*channels),
	}

	atomic.StoreInt32(&e.isRecording, 1)
	logger.Infof("recording to %s", filename)
	return nil
}

// writeRecording runs on the audio thread.
func (e *Engine) writeRecording(in []float32) {
	data := e.sampleBuf.Data[:cap(e.sampleBuf.Data)]
	n := min(len(in), len(data))
	for i := range n {
		s := float64(in[i])
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(s * math.MaxInt32)
	}
	e.sampleBuf.Data = data[:n]

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		logger.Errorf("writing WAV: %v", err)
	}
}

func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}
	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}
	return nil
}
