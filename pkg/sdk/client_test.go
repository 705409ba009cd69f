package sdk

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport replays canned controller output and records writes.
type scriptedTransport struct {
	io.Reader
	written bytes.Buffer
	closed  int
}

func (s *scriptedTransport) Write(p []byte) (int, error) { return s.written.Write(p) }

func (s *scriptedTransport) Close() error {
	s.closed++
	return nil
}

func newScripted(output string) *scriptedTransport {
	return &scriptedTransport{Reader: bytes.NewBufferString(output)}
}

func TestNewClient_ReadsBanner(t *testing.T) {
	tr := newScripted("DeCoF Command Line\nWelcome\n> #t\n> ")

	c, err := NewClient(tr)
	require.NoError(t, err)

	reply, err := c.Query("(param-ref 'emission)")
	require.NoError(t, err)
	assert.Equal(t, "#t", reply)
	assert.Equal(t, "(param-ref 'emission)\n", tr.written.String())
}

func TestNewClient_NoPrompt(t *testing.T) {
	tr := newScripted("garbage without prompt")

	_, err := NewClient(tr)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, tr.closed, "transport should be closed on failure")
}

func TestClient_Query(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr *DeviceError
	}{
		{
			name:   "plain reply",
			output: "> 25.5\n> ",
			want:   "25.5",
		},
		{
			name:   "echoed command is dropped",
			output: "> (param-ref 'x)\n42\n> ",
			want:   "42",
		},
		{
			name:   "echo only",
			output: "> (param-ref 'x)\n> ",
			want:   "",
		},
		{
			name:    "device error with code",
			output:  "> Error: -9 unknown parameter\n> ",
			wantErr: &DeviceError{Code: -9, Message: "unknown parameter"},
		},
		{
			name:    "device error without code",
			output:  "> Error: something odd\n> ",
			wantErr: &DeviceError{Code: -1, Message: "something odd"},
		},
		{
			name:   "prompt inside a line is not a terminator",
			output: "> a> b\n> ",
			want:   "a> b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(newScripted(tt.output))
			require.NoError(t, err)

			got, err := c.Query("(param-ref 'x)")
			if tt.wantErr != nil {
				var devErr *DeviceError
				require.True(t, errors.As(err, &devErr), "expected DeviceError, got %v", err)
				assert.Equal(t, tt.wantErr, devErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ParamSet(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		tr := newScripted("> 0\n> ")
		c, err := NewClient(tr)
		require.NoError(t, err)

		require.NoError(t, c.ParamSet("laser1:dl:cc:current-set", "120.5"))
		assert.Equal(t, "(param-set! 'laser1:dl:cc:current-set 120.5)\n", tr.written.String())
	})

	t.Run("rejected with non-zero code", func(t *testing.T) {
		c, err := NewClient(newScripted("> 3\n> "))
		require.NoError(t, err)

		err = c.ParamSet("x", "1")
		var devErr *DeviceError
		require.True(t, errors.As(err, &devErr))
		assert.Equal(t, 3, devErr.Code)
	})

	t.Run("unparsable reply", func(t *testing.T) {
		c, err := NewClient(newScripted("> ok\n> "))
		require.NoError(t, err)

		err = c.ParamSet("x", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected reply")
	})
}

func TestClient_Close(t *testing.T) {
	tr := newScripted("> ")
	c, err := NewClient(tr)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, tr.closed)

	_, err = c.Query("(param-ref 'emission)")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseBool(t *testing.T) {
	v, err := parseBool("#t")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = parseBool("#f")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = parseBool("true")
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{5e6, "5000000"},
		{3_000_000, "3000000"},
		{-1.25, "-1.25"},
		{0.001, "0.001"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.in))
		})
	}
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "192.168.1.10:1998", hostPort("192.168.1.10"))
	assert.Equal(t, "dlcpro.lab:2000", hostPort("dlcpro.lab:2000"))
	assert.Equal(t, "[::1]:1998", hostPort("::1"))
	assert.Equal(t, "[::1]:1998", hostPort("[::1]"))
}

func TestDial_Errors(t *testing.T) {
	_, err := Dial("", 0)
	assert.Error(t, err)

	_, err = Dial("serial:", 0)
	assert.Error(t, err)
}
