package transport

import applog "ampmeter/internal/log"

// LoggingTransport writes every frame to the debug log.
type LoggingTransport struct {
	log *applog.Logger
}

func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{log: applog.New("levels")}
}

func (lt *LoggingTransport) Send(data any) error {
	if f, ok := data.(LevelFrame); ok {
		lt.log.Debugf("#%d level=%.4f smoothing=%.2f", f.Seq, f.Level, f.Smoothing)
		return nil
	}
	lt.log.Debugf("%+v", data)
	return nil
}

func (lt *LoggingTransport) Close() error { return nil }

var _ Transport = (*LoggingTransport)(nil)
