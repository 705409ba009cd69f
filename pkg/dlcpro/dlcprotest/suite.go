// Package dlcprotest provides a behavioural test suite that every
// dlcpro.Device implementation must pass.
package dlcprotest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/dlcpro/pkg/dlcpro"
)

// Factory returns a freshly constructed device. The suite closes it.
type Factory func(t *testing.T) dlcpro.Device

// InvalidChannels are channel numbers outside a two-channel topology.
var InvalidChannels = []dlcpro.Channel{0, 3, -1}

// Run exercises newDevice against the Device contract.
func Run(t *testing.T, newDevice Factory) {
	open := func(t *testing.T) dlcpro.Device {
		t.Helper()
		dev := newDevice(t)
		t.Cleanup(func() { dev.Close() })
		return dev
	}

	t.Run("PingAfterConstruction", func(t *testing.T) {
		assert.True(t, open(t).Ping())
	})

	t.Run("SetpointEcho", func(t *testing.T) {
		dev := open(t)
		for ch := dlcpro.Channel(1); ch <= dlcpro.NumChannels; ch++ {
			v := float64(ch) * 1.5

			require.NoError(t, dev.SetCurrent(ch, v))
			assertValue(t, v, read(t, dev.GetCurrentSetpoint, ch))

			require.NoError(t, dev.SetVoltage(ch, v+10))
			assertValue(t, v+10, read(t, dev.GetVoltageSetpoint, ch))

			require.NoError(t, dev.SetTemperature(ch, v+20))
			assertValue(t, v+20, read(t, dev.GetTemperatureSetpoint, ch))
		}
	})

	t.Run("CurrentEnabledReadYourWrite", func(t *testing.T) {
		dev := open(t)
		for ch := dlcpro.Channel(1); ch <= dlcpro.NumChannels; ch++ {
			require.NoError(t, dev.SetCurrentEnabled(ch, true))
			on, err := dev.GetCurrentEnabled(ch)
			require.NoError(t, err)
			assert.True(t, on)

			require.NoError(t, dev.SetCurrentEnabled(ch, true))
			on, err = dev.GetCurrentEnabled(ch)
			require.NoError(t, err)
			assert.True(t, on, "enabling twice keeps the loop on")

			require.NoError(t, dev.SetCurrentEnabled(ch, false))
			on, err = dev.GetCurrentEnabled(ch)
			require.NoError(t, err)
			assert.False(t, on)
		}
	})

	t.Run("ChannelIsolation", func(t *testing.T) {
		dev := open(t)

		require.NoError(t, dev.SetCurrentEnabled(1, true))
		on1, err := dev.GetCurrentEnabled(1)
		require.NoError(t, err)
		on2, err := dev.GetCurrentEnabled(2)
		require.NoError(t, err)
		assert.True(t, on1)
		assert.False(t, on2)
	})

	t.Run("InvalidChannel", func(t *testing.T) {
		dev := open(t)

		require.NoError(t, dev.SetCurrent(1, 7))
		require.NoError(t, dev.SetCurrent(2, 8))
		before := snapshot(t, dev)

		for _, ch := range InvalidChannels {
			for name, call := range channelCalls(dev, ch) {
				err := call()
				assert.Truef(t, errors.Is(err, dlcpro.ErrInvalidChannel),
					"%s(%d): expected ErrInvalidChannel, got %v", name, ch, err)
			}
		}

		assert.Equal(t, before, snapshot(t, dev), "invalid calls must not mutate state")
	})

	t.Run("Emission", func(t *testing.T) {
		_, err := open(t).GetEmission()
		assert.NoError(t, err)
	})

	t.Run("CloseTwice", func(t *testing.T) {
		dev := newDevice(t)
		assert.NoError(t, dev.Close())
		assert.NoError(t, dev.Close())
	})
}

// channelCalls returns one invocation of every channel-addressed operation.
func channelCalls(dev dlcpro.Device, ch dlcpro.Channel) map[string]func() error {
	get := func(f func(dlcpro.Channel) (*float64, error)) func() error {
		return func() error { _, err := f(ch); return err }
	}
	return map[string]func() error{
		"GetCurrentEnabled": func() error { _, err := dev.GetCurrentEnabled(ch); return err },
		"SetCurrentEnabled": func() error { return dev.SetCurrentEnabled(ch, true) },
		"SetCurrent":        func() error { return dev.SetCurrent(ch, 1) },
		"SetVoltage":        func() error { return dev.SetVoltage(ch, 1) },
		"SetTemperature":    func() error { return dev.SetTemperature(ch, 1) },

		"GetCurrentSetpoint":     get(dev.GetCurrentSetpoint),
		"GetCurrentActual":       get(dev.GetCurrentActual),
		"GetVoltageSetpoint":     get(dev.GetVoltageSetpoint),
		"GetVoltageActual":       get(dev.GetVoltageActual),
		"GetTemperatureSetpoint": get(dev.GetTemperatureSetpoint),
		"GetTemperatureActual":   get(dev.GetTemperatureActual),
	}
}

// reading is the observable state of one channel.
type reading struct {
	Enabled     bool
	Current     *float64
	Voltage     *float64
	Temperature *float64
}

func snapshot(t *testing.T, dev dlcpro.Device) [dlcpro.NumChannels]reading {
	t.Helper()

	var out [dlcpro.NumChannels]reading
	for i := range out {
		ch := dlcpro.Channel(i + 1)
		on, err := dev.GetCurrentEnabled(ch)
		require.NoError(t, err)
		out[i] = reading{
			Enabled:     on,
			Current:     read(t, dev.GetCurrentSetpoint, ch),
			Voltage:     read(t, dev.GetVoltageSetpoint, ch),
			Temperature: read(t, dev.GetTemperatureSetpoint, ch),
		}
	}
	return out
}

func read(t *testing.T, get func(dlcpro.Channel) (*float64, error), ch dlcpro.Channel) *float64 {
	t.Helper()
	v, err := get(ch)
	require.NoError(t, err)
	return v
}

func assertValue(t *testing.T, want float64, got *float64) {
	t.Helper()
	if assert.NotNil(t, got) {
		assert.Equal(t, want, *got)
	}
}
