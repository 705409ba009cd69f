// Package sdk is a minimal client for the Toptica DLC pro command line.
//
// The controller exposes its parameter tree through a Scheme-like command
// line. Each command is a single line and each reply ends with the "> "
// prompt. Only the param-ref and param-set! commands are used here.
package sdk

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const prompt = "> "

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("connection closed")

// DeviceError is an error reported by the controller itself.
type DeviceError struct {
	Code    int
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
}

// Client issues commands over a Transport.
type Client struct {
	mu     sync.Mutex
	t      Transport
	r      *bufio.Reader
	closed bool
}

// NewClient wraps t and consumes the greeting banner up to the first prompt.
func NewClient(t Transport) (*Client, error) {
	c := &Client{
		t: t,
		r: bufio.NewReader(t),
	}

	if _, err := c.readReply(); err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to read banner: %w", err)
	}

	return c, nil
}

// Query sends one command line and returns the reply text without the prompt.
func (c *Client) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}

	if _, err := c.t.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("failed to send %q: %w", cmd, err)
	}

	reply, err := c.readReply()
	if err != nil {
		return "", fmt.Errorf("failed to read reply to %q: %w", cmd, err)
	}

	// Some firmware echoes the command line back.
	if first, rest, ok := strings.Cut(reply, "\n"); ok && strings.TrimSpace(first) == cmd {
		reply = rest
	} else if strings.TrimSpace(reply) == cmd {
		reply = ""
	}
	reply = strings.TrimSpace(reply)

	if msg, ok := strings.CutPrefix(reply, "Error:"); ok {
		return "", parseDeviceError(msg)
	}

	return reply, nil
}

// ParamRef reads the raw value of a parameter.
func (c *Client) ParamRef(name string) (string, error) {
	return c.Query(fmt.Sprintf("(param-ref '%s)", name))
}

// ParamSet writes a raw value to a parameter.
func (c *Client) ParamSet(name, value string) error {
	reply, err := c.Query(fmt.Sprintf("(param-set! '%s %s)", name, value))
	if err != nil {
		return err
	}

	code, err := strconv.Atoi(reply)
	if err != nil {
		return fmt.Errorf("unexpected reply to param-set! %s: %q", name, reply)
	}
	if code != 0 {
		return &DeviceError{Code: code, Message: "param-set! " + name + " rejected"}
	}
	return nil
}

// Close closes the transport. Subsequent calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.t.Close()
}

// readReply reads until a prompt at the start of a line.
func (c *Client) readReply() (string, error) {
	var buf []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return "", err
		}
		buf = append(buf, b)

		if bytes.HasSuffix(buf, []byte(prompt)) {
			n := len(buf) - len(prompt)
			if n == 0 || buf[n-1] == '\n' {
				return string(buf[:n]), nil
			}
		}
	}
}

// parseDeviceError parses the text after "Error:", e.g. " -9 unknown parameter".
func parseDeviceError(msg string) error {
	msg = strings.TrimSpace(msg)
	codeStr, text, _ := strings.Cut(msg, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return &DeviceError{Code: -1, Message: msg}
	}
	return &DeviceError{Code: code, Message: strings.TrimSpace(text)}
}
