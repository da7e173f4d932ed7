package serialmux

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/twin.report/internal/units"
)

// Line classes reported by ClassifyPayload.
const (
	EventTypeReading = "reading"
	EventTypeStatus  = "status"
	EventTypeLog     = "log"
	EventTypeUnknown = "unknown"
)

// ErrMissingDevice is returned for payloads without a device_id.
var ErrMissingDevice = errors.New("device_id required")

// ClassifyPayload tells sensor readings (JSON objects carrying device_id)
// from other gateway JSON and from free-text boot and debug output.
func ClassifyPayload(line string) string {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return EventTypeUnknown
	case strings.HasPrefix(line, "{") && strings.Contains(line, `"device_id"`):
		return EventTypeReading
	case strings.HasPrefix(line, "{"):
		return EventTypeStatus
	default:
		return EventTypeLog
	}
}

// Payload is one decoded sensor report.
type Payload struct {
	DeviceID string
	// Values holds the finite numeric channels present in the report.
	Values map[string]float64
	// Timestamp is zero when the report carried none.
	Timestamp time.Time
	Raw       []byte
}

// ParsePayload decodes a sensor report: a JSON object with a string
// device_id and any of the reading channels as numbers. Unknown keys and
// non-numeric channel values are ignored. An optional "ts" may be an RFC
// 3339 string or unix seconds.
func ParsePayload(data []byte) (Payload, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Payload{}, fmt.Errorf("failed to parse payload: %w", err)
	}
	id, _ := fields["device_id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return Payload{}, ErrMissingDevice
	}

	p := Payload{DeviceID: id, Values: make(map[string]float64), Raw: append([]byte(nil), data...)}
	for _, ch := range units.ReadingChannels {
		if v, ok := fields[ch].(float64); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			p.Values[ch] = v
		}
	}

	switch ts := fields["ts"].(type) {
	case nil:
	case string:
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Payload{}, fmt.Errorf("invalid ts %q: %w", ts, err)
		}
		p.Timestamp = t
	case float64:
		sec, frac := math.Modf(ts)
		p.Timestamp = time.Unix(int64(sec), int64(frac*1e9))
	default:
		return Payload{}, fmt.Errorf("invalid ts %v", ts)
	}
	return p, nil
}
