package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"ampmeter/cmd"
	"ampmeter/internal/audio"
	"ampmeter/internal/config"
	applog "ampmeter/internal/log"
	"ampmeter/internal/transport"
	"ampmeter/internal/tui"
	"ampmeter/pkg/amplitude"
	"ampmeter/pkg/build"
	"ampmeter/pkg/graph"
	"ampmeter/pkg/meter"
)

// main runs in three phases:
//
// 1. Startup (cold path): build info, argument parsing, one-off commands.
// 2. Metering (hot path): the PortAudio callback renders the graph while the
// publisher and the TUI read the probe.
// 3. Shutdown (cold path): stop the stream, flush the recording, close
// transports.
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("build info incomplete: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// --help or --version
		return
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	switch cfg.Command {
	case "list":
		if err := listDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	case "analyze":
		if err := analyzeFile(cfg, cfg.Args[0]); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// One thread for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := runLive(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices()
}

// analyzeFile prints the amplitude envelope of a WAV file, one line per
// send interval.
func analyzeFile(cfg *config.Config, path string) error {
	clip, err := audio.LoadWAV(path)
	if err != nil {
		return err
	}

	ctx, err := graph.NewContext(float64(clip.SampleRate), cfg.Audio.FramesPerBuffer)
	if err != nil {
		return err
	}
	src := graph.NewBufferSource(clip.Samples)
	if err := ctx.Add(src); err != nil {
		return err
	}
	probe := amplitude.New(ctx, cfg.Meter.Smoothing, meter.WithWindowSize(cfg.Meter.WindowSize))
	if err := probe.SetInput(src); err != nil {
		return err
	}

	blockDur := time.Duration(float64(ctx.BlockSize()) / ctx.SampleRate() * float64(time.Second))
	every := max(1, int(cfg.Transport.SendInterval/blockDur))

	fmt.Printf("%s: %s, %d Hz\n\n", filepath.Base(path), clip.Duration().Round(time.Millisecond), clip.SampleRate)
	for _, p := range audio.Analyze(ctx, probe, src, every) {
		fmt.Printf("%10s  %.4f\n", p.Time.Round(time.Millisecond), p.Level)
	}
	return nil
}

func runLive(cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	ctx, err := graph.NewContext(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(&cfg.Audio, ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("closing audio engine: %v", err)
		}
	}()

	probe := amplitude.New(ctx, cfg.Meter.Smoothing, meter.WithWindowSize(cfg.Meter.WindowSize))
	if err := probe.SetInput(engine.Input()); err != nil {
		return err
	}

	publisher, err := newPublisher(cfg, probe)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				applog.Errorf("closing transports: %v", err)
			}
		}()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if err := engine.StartInputStream(); err != nil {
		return err
	}
	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			return err
		}
	}
	if publisher != nil {
		publisher.Start()
	}

	if cfg.TUIMode {
		// Log lines would tear the alternate screen.
		applog.SetOutput(io.Discard)
		err = tui.Run(probe, fmt.Sprintf("device %d @ %.0f Hz", cfg.Audio.InputDevice, cfg.Audio.SampleRate))
		applog.SetOutput(os.Stderr)
		if err != nil {
			applog.Errorf("tui: %v", err)
		}
	} else {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		applog.Infof("metering, press Ctrl+C to stop")
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if publisher != nil {
		publisher.Stop()
	}
	if err := engine.StopInputStream(); err != nil {
		applog.Errorf("stopping input stream: %v", err)
	}
	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}
	return nil
}

// newPublisher returns nil when no transport is enabled.
func newPublisher(cfg *config.Config, probe *amplitude.Probe) (*transport.Publisher, error) {
	var transports []transport.Transport

	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WSAddress)
		ws.Start()
		applog.Infof("websocket listening on %s%s", cfg.Transport.WSAddress, transport.WebSocketPath)
		transports = append(transports, ws)
	}
	if cfg.Transport.UDPEnabled {
		udp, err := transport.NewUDPTransport(cfg.Transport.UDPAddress)
		if err != nil {
			for _, t := range transports {
				_ = t.Close()
			}
			return nil, err
		}
		applog.Infof("sending UDP frames to %s", cfg.Transport.UDPAddress)
		transports = append(transports, udp)
	}
	if applog.GetLevel() == applog.LevelDebug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if len(transports) == 0 {
		return nil, nil
	}
	return transport.NewPublisher(cfg.Transport.SendInterval, probe, transports...)
}
