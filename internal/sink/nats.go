package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes staged messages to per-room NATS subjects so an
// external persistence service can consume them.
type NATSSink struct {
	nc            *nats.Conn
	subjectPrefix string
}

// ConnectNATS connects to the NATS server at url and returns a sink that
// publishes under subjectPrefix.<roomId>.
func ConnectNATS(url, subjectPrefix string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSSink{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// Publish implements Sink.
func (s *NATSSink) Publish(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal sink record: %w", err)
	}
	if err := s.nc.Publish(s.subject(rec.RoomID), data); err != nil {
		return fmt.Errorf("publish sink record: %w", err)
	}
	return nil
}

// Close implements Sink. Buffered publishes are flushed before the
// connection drops.
func (s *NATSSink) Close() error {
	if err := s.nc.Flush(); err != nil {
		s.nc.Close()
		return fmt.Errorf("flush NATS connection: %w", err)
	}
	s.nc.Close()
	return nil
}

// subject maps a room id onto a NATS subject, replacing token separators
// that would change subject semantics.
func (s *NATSSink) subject(roomID string) string {
	sanitized := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(roomID)
	return s.subjectPrefix + "." + sanitized
}
