package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ampmeter/pkg/amplitude"
	"ampmeter/pkg/graph"

	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a valid WAV file")

// Clip is a decoded, mono, normalized sound file.
type Clip struct {
	Samples    []float32
	SampleRate int
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// LoadWAV decodes a PCM WAV file, downmixing to mono and scaling samples to
// [-1, 1] by the file's bit depth.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("%s: %w (no channels)", path, ErrNotWAV)
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	scale := 1 / float64(int64(1)<<(depth-1))
	if depth == 8 {
		// 8-bit WAV is unsigned, centred on 128.
		for i := range buf.Data {
			buf.Data[i] -= 128
		}
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := range frames {
		var sum int
		for c := range channels {
			sum += buf.Data[i*channels+c]
		}
		samples[i] = float32(float64(sum) / float64(channels) * scale)
	}

	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// LevelPoint is one reading of an offline analysis.
type LevelPoint struct {
	Time  time.Duration
	Level float64
}

// Analyze plays src through ctx until it is exhausted, reading the probe
// after every `every` blocks. The probe must already be wired to src.
func Analyze(ctx *graph.Context, probe *amplitude.Probe, src *graph.BufferSource, every int) []LevelPoint {
	if every <= 0 {
		every = 1
	}

	blockDur := time.Duration(float64(ctx.BlockSize()) / ctx.SampleRate() * float64(time.Second))
	out := make([]float32, ctx.BlockSize())

	var points []LevelPoint
	for block := 1; !src.Done(); block++ {
		ctx.Render(out)
		if block%every == 0 || src.Done() {
			points = append(points, LevelPoint{
				Time:  time.Duration(block) * blockDur,
				Level: probe.Level(),
			})
		}
	}
	return points
}
