package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Event is the wire form of a diagnostic published to NATS for downstream
// consumers (CI dashboards, notification bridges).
type Event struct {
	Kind       string    `json:"kind"`
	Text       string    `json:"text"`
	SourcePath string    `json:"source_path,omitempty"`
	Line       int       `json:"line,omitempty"`
	Column     int       `json:"column,omitempty"`
	BuildID    string    `json:"build_id,omitempty"`
	Chunk      string    `json:"chunk,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NATSSink publishes diagnostics to a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	buildID string
	chunk   string
}

// NewNATSSink connects to NATS and prepares a JetStream publisher.
func NewNATSSink(cfg *config.DiagnosticsConfig) (*NATSSink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("diagnostics config is required")
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("diagnostics publication is disabled")
	}

	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS diagnostics sink initialized",
		"url", cfg.NATSURL,
		"subject", cfg.Subject)

	return &NATSSink{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
	}, nil
}

// ForBuild returns a derived sink stamping events with the build ID.
// The underlying connection is shared.
func (s *NATSSink) ForBuild(buildID string) *NATSSink {
	out := *s
	out.buildID = buildID
	return &out
}

// ForChunk returns a derived sink stamping events with the chunk name.
func (s *NATSSink) ForChunk(chunk string) *NATSSink {
	out := *s
	out.chunk = chunk
	return &out
}

// Send publishes the message. Delivery is best effort: failures are logged
// and never fail the build.
func (s *NATSSink) Send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := Event{
		Kind:       string(msg.Kind),
		Text:       msg.Text,
		SourcePath: msg.SourcePath,
		Line:       msg.Line,
		Column:     msg.Column,
		BuildID:    s.buildID,
		Chunk:      s.chunk,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal diagnostic event", "error", err)
		return
	}

	if _, err := s.js.Publish(ctx, s.subject, data); err != nil {
		slog.Debug("failed to publish diagnostic event", "error", err)
	}
}

// Close closes the NATS connection.
func (s *NATSSink) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
