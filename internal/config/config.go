package config

import "time"

// Defaults and limits for the metering host.
const (
	DefaultDeviceID        = MinDeviceID // System default input
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultChannels        = 1           // Mono capture
	DefaultSmoothing       = 0.0         // Instant readings
	DefaultWindowSize      = 256         // Analysis window in samples
	DefaultWSAddress       = ":8080"
	DefaultUDPAddress      = "127.0.0.1:9090"
	DefaultSendInterval    = 33 * time.Millisecond // ~30 Hz, one frame per sketch draw
	DefaultLogLevel        = "info"
	DefaultRecordingFormat = "wav"

	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxWindowSize   = 65536  // Maximum analysis window
)

// Config holds every runtime option. It is built from defaults, an optional
// YAML file, ENV_* overrides and finally command line flags.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Command   string          `yaml:"-"` // Set by the CLI ("list", "analyze").
	Args      []string        `yaml:"-"` // Positional CLI arguments.
	TUIMode   bool            `yaml:"tui"`
	Audio     AudioConfig     `yaml:"audio"`
	Meter     MeterConfig     `yaml:"meter"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds the capture device settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Also the graph block size.
	InputChannels   int     `yaml:"input_channels"`    // Downmixed to mono before metering.
	LowLatency      bool    `yaml:"low_latency"`
}

// MeterConfig holds the amplitude probe settings.
type MeterConfig struct {
	Smoothing  float64 `yaml:"smoothing"`   // [0,1), 0 = no averaging.
	WindowSize int     `yaml:"window_size"` // Power of two.
}

// RecordingConfig controls capture-to-file.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Generated from the time when empty.
	Format     string `yaml:"format"`
}

// TransportConfig controls where level frames are published.
type TransportConfig struct {
	WSEnabled    bool          `yaml:"ws_enabled"`
	WSAddress    string        `yaml:"ws_address"`
	UDPEnabled   bool          `yaml:"udp_enabled"`
	UDPAddress   string        `yaml:"udp_address"`
	SendInterval time.Duration `yaml:"send_interval"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
		},
		Meter: MeterConfig{
			Smoothing:  DefaultSmoothing,
			WindowSize: DefaultWindowSize,
		},
		Recording: RecordingConfig{
			Format: DefaultRecordingFormat,
		},
		Transport: TransportConfig{
			WSAddress:    DefaultWSAddress,
			UDPAddress:   DefaultUDPAddress,
			SendInterval: DefaultSendInterval,
		},
	}
}
