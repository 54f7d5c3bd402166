package diag

import (
	"log/slog"

	"git.home.luguber.info/inful/groovybuild/internal/logfields"
)

// SlogSink forwards diagnostics to the process logger, mapping kinds onto
// slog levels. Progress messages log at debug to keep normal output quiet.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over the given logger, defaulting to slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Send(msg Message) {
	attrs := make([]any, 0, 2)
	if msg.SourcePath != "" {
		attrs = append(attrs, logfields.Source(msg.SourcePath))
		if msg.Line > 0 {
			attrs = append(attrs, slog.Int("line", msg.Line))
		}
	}

	switch msg.Kind {
	case KindError:
		s.logger.Error(msg.Text, attrs...)
	case KindWarning:
		s.logger.Warn(msg.Text, attrs...)
	case KindProgress:
		s.logger.Debug(msg.Text, attrs...)
	default:
		s.logger.Info(msg.Text, attrs...)
	}
}
