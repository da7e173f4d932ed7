package serialmux

import (
	"bytes"
	"errors"
	"sync"
)

var errPortClosed = errors.New("serial port closed")

// TestablePort is an in-memory SerialPorter. Reads block until data is
// added or the port is closed; writes are captured.
type TestablePort struct {
	mu      sync.Mutex
	cond    *sync.Cond
	read    bytes.Buffer
	written bytes.Buffer
	closed  bool

	// WriteError is returned by the next Write when set.
	WriteError error
	// CloseError is returned by Close.
	CloseError error
}

// NewTestablePort returns a port that will read the given lines, each
// followed by a newline.
func NewTestablePort(lines ...string) *TestablePort {
	p := &TestablePort{}
	p.cond = sync.NewCond(&p.mu)
	for _, l := range lines {
		p.read.WriteString(l + "\n")
	}
	return p
}

func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.read.Len() == 0 {
		p.cond.Wait()
	}
	if p.closed {
		return 0, errPortClosed
	}
	return p.read.Read(b)
}

func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errPortClosed
	}
	if err := p.WriteError; err != nil {
		p.WriteError = nil
		return 0, err
	}
	return p.written.Write(b)
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return p.CloseError
}

// AddLine queues a line for reading.
func (p *TestablePort) AddLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.read.WriteString(line + "\n")
	p.cond.Signal()
}

// Written returns everything written to the port.
func (p *TestablePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// NewMockSerialMux returns a mux over a TestablePort preloaded with lines.
func NewMockSerialMux(lines ...string) (*SerialMux[*TestablePort], *TestablePort) {
	port := NewTestablePort(lines...)
	return NewSerialMux(port), port
}
