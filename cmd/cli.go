package cmd

import (
	"time"

	"ampmeter/internal/config"
	"ampmeter/pkg/build"

	"github.com/spf13/cobra"
)

// flagValues holds raw flag input; only flags the user set override the
// loaded configuration.
type flagValues struct {
	configPath      string
	deviceID        int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	smoothing       float64
	windowSize      int
	ws              bool
	wsAddr          string
	udp             bool
	udpAddr         string
	interval        time.Duration
	record          bool
	output          string
	tui             bool
	verbose         bool
}

// ParseArgs builds the Config from the config file, ENV_* overrides and args.
func ParseArgs(args []string) (*config.Config, error) {
	info := build.Get()
	var (
		fv  flagValues
		cfg *config.Config
	)

	load := func(cmd *cobra.Command, command string, cmdArgs []string) error {
		loaded, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		fv.apply(cmd, loaded)
		loaded.Command = command
		loaded.Args = cmdArgs
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "", args)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "list", args)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Print the amplitude envelope of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "analyze", args)
		},
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Path to a YAML config file (default ./ampmeter.yaml if present)")

	// Audio Device Configuration
	pf.IntVarP(&fv.deviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	pf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture, mixed down to mono")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per buffer, also the analysis block size")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", false,
		"Use the device's low latency setting")

	// Meter Configuration
	pf.Float64Var(&fv.smoothing, "smoothing", config.DefaultSmoothing,
		"Averaging with the previous analysis frame, 0 (off) to <1")
	pf.IntVar(&fv.windowSize, "window", config.DefaultWindowSize,
		"Analysis window in samples (power of two)")

	// Publishing Configuration
	pf.BoolVar(&fv.ws, "ws", false, "Publish levels over WebSocket")
	pf.StringVar(&fv.wsAddr, "ws-addr", config.DefaultWSAddress, "WebSocket listen address")
	pf.BoolVar(&fv.udp, "udp", false, "Publish levels over UDP")
	pf.StringVar(&fv.udpAddr, "udp-addr", config.DefaultUDPAddress, "UDP target address")
	pf.DurationVar(&fv.interval, "interval", config.DefaultSendInterval, "Time between published frames")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", false, "Record the input to a WAV file")
	pf.StringVarP(&fv.output, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	pf.BoolVarP(&fv.tui, "tui", "t", false, "Show the live meter in the terminal")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply copies every flag the user set into cfg.
func (fv *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = fv.deviceID
	}
	if changed("channels") {
		cfg.Audio.InputChannels = fv.channels
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if changed("smoothing") {
		cfg.Meter.Smoothing = fv.smoothing
	}
	if changed("window") {
		cfg.Meter.WindowSize = fv.windowSize
	}
	if changed("ws") {
		cfg.Transport.WSEnabled = fv.ws
	}
	if changed("ws-addr") {
		cfg.Transport.WSAddress = fv.wsAddr
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = fv.udp
	}
	if changed("udp-addr") {
		cfg.Transport.UDPAddress = fv.udpAddr
	}
	if changed("interval") {
		cfg.Transport.SendInterval = fv.interval
	}
	if changed("record") {
		cfg.Recording.Enabled = fv.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = fv.output
	}
	if changed("tui") {
		cfg.TUIMode = fv.tui
	}
	if changed("verbose") && fv.verbose {
		cfg.LogLevel = "debug"
	}

	if cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") +
			"." + cfg.Recording.Format
	}
}
