package serialmux

import (
	"context"
	"fmt"

	"github.com/banshee-data/twin.report/internal/monitoring"
)

// Ingester stores a decoded sensor report.
type Ingester interface {
	Ingest(ctx context.Context, p Payload) error
}

// IngestFunc adapts a function to Ingester.
type IngestFunc func(ctx context.Context, p Payload) error

func (f IngestFunc) Ingest(ctx context.Context, p Payload) error { return f(ctx, p) }

// HandleLine ingests line if it is a sensor reading. Status and log lines
// are only logged.
func HandleLine(ctx context.Context, ing Ingester, line string) error {
	switch ClassifyPayload(line) {
	case EventTypeReading:
		p, err := ParsePayload([]byte(line))
		if err != nil {
			return fmt.Errorf("failed to handle reading: %w", err)
		}
		if err := ing.Ingest(ctx, p); err != nil {
			return fmt.Errorf("failed to ingest reading from %s: %w", p.DeviceID, err)
		}
	case EventTypeStatus:
		monitoring.Logf("gateway status: %s", line)
	case EventTypeLog:
		monitoring.Logf("gateway: %s", line)
	}
	return nil
}

// Consume subscribes to m and handles its lines until ctx is done or the
// mux closes the subscription. Failures are logged and do not stop the
// loop.
func Consume(ctx context.Context, m SerialMuxInterface, ing Ingester) {
	id, lines := m.Subscribe()
	defer m.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := HandleLine(ctx, ing, line); err != nil {
				monitoring.Logf("serial ingest: %v", err)
			}
		}
	}
}
