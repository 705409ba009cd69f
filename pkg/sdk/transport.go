package sdk

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultPort is the TCP port of the DLC pro command line.
	DefaultPort = 1998
	// DefaultBaudRate is the baud rate of the DLC pro USB serial interface.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds the initial connection attempt.
	DefaultTimeout = 5 * time.Second

	serialScheme = "serial:"
)

// Transport is a byte stream to the controller's command line.
type Transport interface {
	io.ReadWriteCloser
}

// Dial opens a transport to the controller at address.
//
// Addresses of the form "serial:/dev/ttyACM0" (or "serial:COM3") open the
// USB serial interface. Anything else is a TCP host, optionally with a port;
// the command-line port 1998 is used when none is given.
func Dial(address string, timeout time.Duration) (Transport, error) {
	if address == "" {
		return nil, fmt.Errorf("empty device address")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if port, ok := strings.CutPrefix(address, serialScheme); ok {
		return openSerial(port)
	}

	conn, err := net.DialTimeout("tcp", hostPort(address), timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn, nil
}

// hostPort appends the default command-line port when address has none.
func hostPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.Trim(address, "[]"), fmt.Sprint(DefaultPort))
}

func openSerial(name string) (Transport, error) {
	if name == "" {
		return nil, fmt.Errorf("empty serial port name")
	}

	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return port, nil
}
