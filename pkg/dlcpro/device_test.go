package dlcpro

import (
	"bytes"
	"errors"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dlcpro/pkg/sdk"
)

func openFakeHardware(t *testing.T) (*sdk.Fake, *Hardware) {
	t.Helper()

	fake := sdk.NewFake()
	h, err := OpenHardware(fake.Connect(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	return fake, h
}

func TestNewHardware_Unreachable(t *testing.T) {
	// Port 1 on localhost is reserved and closed in test environments.
	_, err := NewHardware("127.0.0.1:1", 200*time.Millisecond, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestNewHardware_SilentEndpoint(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := lis.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	done := make(chan error, 1)
	go func() {
		_, err := NewHardware(lis.Addr().String(), 200*time.Millisecond, nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConnection)
		assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	case <-time.After(3 * time.Second):
		t.Fatal("NewHardware blocked on an endpoint that never sends a prompt")
	}
}

func TestNewHardware_EmptyAddress(t *testing.T) {
	_, err := NewHardware("", time.Second, nil)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestHardware_ParameterMapping(t *testing.T) {
	fake, h := openFakeHardware(t)

	require.NoError(t, h.SetCurrentEnabled(2, true))
	require.NoError(t, h.SetCurrent(2, 150.25))
	require.NoError(t, h.SetVoltage(1, 12))
	require.NoError(t, h.SetTemperature(1, 21.5))

	tests := []struct {
		param string
		want  string
	}{
		{"laser2:dl:cc:enabled", "#t"},
		{"laser1:dl:cc:enabled", "#f"},
		{"laser2:dl:cc:current-set", "150.25"},
		{"laser1:dl:cc:current-set", "0"},
		{"laser1:dl:pc:voltage-set", "12"},
		{"laser1:dl:tc:temp-set", "21.5"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			got, ok := fake.Param(tt.param)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHardware_ReadsActualFromDevice(t *testing.T) {
	fake, h := openFakeHardware(t)

	require.NoError(t, h.SetTemperature(1, 25))
	fake.SetParam("laser1:dl:tc:temp-act", "24.987")
	fake.SetParam("laser1:dl:cc:current-act", "99.5")
	fake.SetParam("laser1:dl:pc:voltage-act", "3.25")

	set, err := h.GetTemperatureSetpoint(1)
	require.NoError(t, err)
	assert.Equal(t, 25.0, *set)

	act, err := h.GetTemperatureActual(1)
	require.NoError(t, err)
	assert.Equal(t, 24.987, *act)

	act, err = h.GetCurrentActual(1)
	require.NoError(t, err)
	assert.Equal(t, 99.5, *act)

	act, err = h.GetVoltageActual(1)
	require.NoError(t, err)
	assert.Equal(t, 3.25, *act)
}

func TestHardware_Emission(t *testing.T) {
	fake, h := openFakeHardware(t)

	on, err := h.GetEmission()
	require.NoError(t, err)
	assert.True(t, on)

	fake.SetParam("emission", "#f")
	on, err = h.GetEmission()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestHardware_InvalidChannelSkipsIO(t *testing.T) {
	fake, h := openFakeHardware(t)

	for _, ch := range []Channel{0, 3, -1} {
		assert.ErrorIs(t, h.SetCurrent(ch, 1), ErrInvalidChannel)
		_, err := h.GetTemperatureActual(ch)
		assert.ErrorIs(t, err, ErrInvalidChannel)
	}

	assert.Empty(t, fake.Commands(), "no command may reach the device")
}

func TestHardware_DeviceIOError(t *testing.T) {
	fake, h := openFakeHardware(t)

	fake.FailNext("interlock open")
	err := h.SetCurrent(1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceIO)
	assert.NotErrorIs(t, err, ErrConnection)

	var devErr *sdk.DeviceError
	require.True(t, errors.As(err, &devErr), "SDK error must stay in the chain")
	assert.Equal(t, "interlock open", devErr.Message)
	assert.Contains(t, err.Error(), "channel 1")

	// No retry: the setpoint was not written.
	v, _ := fake.Param("laser1:dl:cc:current-set")
	assert.Equal(t, "0", v)
}

func TestHardware_MalformedReply(t *testing.T) {
	fake, h := openFakeHardware(t)

	fake.SetParam("laser2:dl:tc:temp-act", "n/a")
	_, err := h.GetTemperatureActual(2)
	assert.ErrorIs(t, err, ErrDeviceIO)
}

func TestHardware_ConnectionLost(t *testing.T) {
	fake, h := openFakeHardware(t)

	fake.Disconnect()

	_, err := h.GetCurrentEnabled(1)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestHardware_Close(t *testing.T) {
	_, h := openFakeHardware(t)

	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())

	_, err := h.GetEmission()
	assert.ErrorIs(t, err, ErrConnection)

	// Channel validation still comes first on a closed backend.
	_, err = h.GetCurrentSetpoint(5)
	assert.ErrorIs(t, err, ErrInvalidChannel)
	err = h.SetVoltage(1, 1)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestHardware_CloseWithoutConnection(t *testing.T) {
	var h Hardware
	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
	assert.True(t, h.Ping())
}

// closeErrTransport fails on Close after closing the underlying transport.
type closeErrTransport struct {
	sdk.Transport
}

func (c closeErrTransport) Close() error {
	c.Transport.Close()
	return errors.New("port busy")
}

func TestHardware_CloseLogsTransportError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h, err := OpenHardware(closeErrTransport{sdk.NewFake().Connect()}, logger)
	require.NoError(t, err)

	assert.NoError(t, h.Close())
	assert.Contains(t, buf.String(), `"msg":"error closing device connection"`)
	assert.Contains(t, buf.String(), `"error":"port busy"`)
	assert.Contains(t, buf.String(), `"backend":"hardware"`)
}
