package serial

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Port opens a serial device at a fixed baud rate, 8N1.
type Port struct {
	Path     string
	BaudRate int
}

func NewPort(path string, baud int) *Port {
	return &Port{Path: path, BaudRate: baud}
}

func (p *Port) Open() (io.ReadCloser, error) {
	port, err := serial.Open(p.Path, &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

func (p *Port) String() string {
	return fmt.Sprintf("%s@%d", p.Path, p.BaudRate)
}

// List returns the serial ports visible to the host.
func List() ([]string, error) {
	return serial.GetPortsList()
}
