package serialmux

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	m, err := New("", PortOptions{}, nil)
	if err != nil {
		t.Fatalf("New(disabled): %v", err)
	}
	if _, ok := m.(*DisabledSerialMux); !ok {
		t.Errorf("empty path should give DisabledSerialMux, got %T", m)
	}

	var gotPath string
	var gotOpts PortOptions
	port := NewTestablePort()
	m, err = New("/dev/ttyACM0", PortOptions{BaudRate: 9600}, func(path string, opts PortOptions) (SerialPorter, error) {
		gotPath, gotOpts = path, opts
		return port, nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if gotPath != "/dev/ttyACM0" || gotOpts.BaudRate != 9600 {
		t.Errorf("opener got %q %+v", gotPath, gotOpts)
	}
	if err := m.SendCommand("hello"); err != nil {
		t.Fatal(err)
	}
	if port.Written() != "hello\n" {
		t.Errorf("written = %q", port.Written())
	}

	_, err = New("/dev/missing", PortOptions{}, func(string, PortOptions) (SerialPorter, error) {
		return nil, errors.New("no such device")
	})
	if err == nil {
		t.Error("expected opener error")
	}
}
