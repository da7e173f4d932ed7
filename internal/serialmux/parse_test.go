package serialmux

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyPayload(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`{"device_id":"a","temperature_c":20}`, EventTypeReading},
		{`  {"device_id":"a"}  `, EventTypeReading},
		{`{"gateway":"up","peers":3}`, EventTypeStatus},
		{"ESP-ROM:esp32c3", EventTypeLog},
		{"", EventTypeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyPayload(tt.line); got != tt.want {
			t.Errorf("ClassifyPayload(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]float64
		wantTS  time.Time
		wantErr bool
	}{
		{
			name: "all channels",
			in:   `{"device_id":"n1","temperature_c":21.5,"humidity_pct":40,"pressure_hpa":1012,"eco2_ppm":600,"tvoc_ppb":12,"pm25_ugm3":3,"battery_pct":88,"battery_v":3.9}`,
			want: map[string]float64{
				"temperature_c": 21.5, "humidity_pct": 40, "pressure_hpa": 1012, "eco2_ppm": 600,
				"tvoc_ppb": 12, "pm25_ugm3": 3, "battery_pct": 88, "battery_v": 3.9,
			},
		},
		{
			name: "unknown and non-numeric ignored",
			in:   `{"device_id":"n1","temperature_c":"hot","rssi":-60,"humidity_pct":null}`,
			want: map[string]float64{},
		},
		{
			name:   "rfc3339 ts",
			in:     `{"device_id":"n1","ts":"2026-03-01T10:00:00Z","temperature_c":20}`,
			want:   map[string]float64{"temperature_c": 20},
			wantTS: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "unix ts",
			in:     `{"device_id":"n1","ts":1767225600}`,
			want:   map[string]float64{},
			wantTS: time.Unix(1767225600, 0),
		},
		{name: "bad ts", in: `{"device_id":"n1","ts":"yesterday"}`, wantErr: true},
		{name: "bool ts", in: `{"device_id":"n1","ts":true}`, wantErr: true},
		{name: "missing device", in: `{"temperature_c":20}`, wantErr: true},
		{name: "numeric device", in: `{"device_id":7}`, wantErr: true},
		{name: "not json", in: `device_id=n1`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.DeviceID != "n1" {
				t.Errorf("DeviceID = %q", p.DeviceID)
			}
			if diff := cmp.Diff(tt.want, p.Values); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
			if !p.Timestamp.Equal(tt.wantTS) {
				t.Errorf("Timestamp = %v, want %v", p.Timestamp, tt.wantTS)
			}
			if string(p.Raw) != tt.in {
				t.Errorf("Raw = %q", p.Raw)
			}
		})
	}

	_, err := ParsePayload([]byte(`{"device_id":"  "}`))
	if !errors.Is(err, ErrMissingDevice) {
		t.Errorf("blank device id: err = %v, want ErrMissingDevice", err)
	}
}
