package serialmux

import "io"

// SerialPorter is the part of a serial port the mux uses. Tests substitute
// an in-memory port.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// Opener opens the device at path. OpenSerialPort is the real one.
type Opener func(path string, opts PortOptions) (SerialPorter, error)
