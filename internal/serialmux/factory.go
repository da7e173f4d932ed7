package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerialPort opens a real serial device with opts.
func OpenSerialPort(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}

// New returns a mux over the device at path opened with open. An empty path
// returns a DisabledSerialMux so the server runs without a gateway.
func New(path string, opts PortOptions, open Opener) (SerialMuxInterface, error) {
	if path == "" {
		return NewDisabledSerialMux(), nil
	}
	if open == nil {
		open = OpenSerialPort
	}
	port, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux(port), nil
}
