package dlcpro

import (
	"log/slog"
)

// Mock simulates a DLC pro for testing and development.
//
// Actual readbacks echo the last setpoint exactly; there is no settling or
// noise model. Every call emits a trace on the logger at warn level.
type Mock struct {
	Base

	log      *slog.Logger
	channels [NumChannels]ChannelState
}

// NewMock creates a simulated device with all current loops disabled and
// all setpoints unset. A nil logger uses slog.Default().
func NewMock(logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{
		log: logger.With("backend", "simulated"),
	}
}

// State returns a copy of the state of ch.
func (m *Mock) State(ch Channel) (ChannelState, error) {
	i, err := ch.Index()
	if err != nil {
		return ChannelState{}, err
	}
	return m.channels[i].clone(), nil
}

// GetEmission always reports emission on.
func (m *Mock) GetEmission() (bool, error) {
	return true, nil
}

// GetCurrentEnabled returns whether the current loop of ch is on.
func (m *Mock) GetCurrentEnabled(ch Channel) (bool, error) {
	i, err := ch.Index()
	if err != nil {
		return false, err
	}
	enabled := m.channels[i].CurrentEnabled
	m.log.Warn("current loop state readout", "channel", int(ch), "enabled", enabled)
	return enabled, nil
}

// SetCurrentEnabled turns the current loop of ch on or off.
func (m *Mock) SetCurrentEnabled(ch Channel, enabled bool) error {
	i, err := ch.Index()
	if err != nil {
		return err
	}
	m.channels[i].CurrentEnabled = enabled
	if enabled {
		m.log.Warn("turning channel on", "channel", int(ch))
	} else {
		m.log.Warn("turning channel off", "channel", int(ch))
	}
	return nil
}

// SetCurrent sets the drive current setpoint of ch.
func (m *Mock) SetCurrent(ch Channel, value float64) error {
	return m.set(ch, "current", value, func(s *ChannelState) **float64 { return &s.CurrentSetpoint })
}

// GetCurrentSetpoint returns the drive current setpoint of ch.
func (m *Mock) GetCurrentSetpoint(ch Channel) (*float64, error) {
	return m.get(ch, "current setpoint", func(s *ChannelState) *float64 { return s.CurrentSetpoint })
}

// GetCurrentActual returns the drive current of ch, which equals its setpoint.
func (m *Mock) GetCurrentActual(ch Channel) (*float64, error) {
	return m.get(ch, "current", func(s *ChannelState) *float64 { return s.CurrentSetpoint })
}

// SetVoltage sets the voltage setpoint of ch.
func (m *Mock) SetVoltage(ch Channel, value float64) error {
	return m.set(ch, "voltage", value, func(s *ChannelState) **float64 { return &s.VoltageSetpoint })
}

// GetVoltageSetpoint returns the voltage setpoint of ch.
func (m *Mock) GetVoltageSetpoint(ch Channel) (*float64, error) {
	return m.get(ch, "voltage setpoint", func(s *ChannelState) *float64 { return s.VoltageSetpoint })
}

// GetVoltageActual returns the voltage of ch, which equals its setpoint.
func (m *Mock) GetVoltageActual(ch Channel) (*float64, error) {
	return m.get(ch, "voltage", func(s *ChannelState) *float64 { return s.VoltageSetpoint })
}

// SetTemperature sets the temperature setpoint of ch.
func (m *Mock) SetTemperature(ch Channel, value float64) error {
	return m.set(ch, "temperature", value, func(s *ChannelState) **float64 { return &s.TemperatureSetpoint })
}

// GetTemperatureSetpoint returns the temperature setpoint of ch.
func (m *Mock) GetTemperatureSetpoint(ch Channel) (*float64, error) {
	return m.get(ch, "temperature setpoint", func(s *ChannelState) *float64 { return s.TemperatureSetpoint })
}

// GetTemperatureActual returns the temperature of ch, which equals its setpoint.
func (m *Mock) GetTemperatureActual(ch Channel) (*float64, error) {
	return m.get(ch, "temperature", func(s *ChannelState) *float64 { return s.TemperatureSetpoint })
}

func (m *Mock) set(ch Channel, quantity string, value float64, field func(*ChannelState) **float64) error {
	i, err := ch.Index()
	if err != nil {
		return err
	}
	*field(&m.channels[i]) = &value
	m.log.Warn("setting "+quantity, "channel", int(ch), "value", value)
	return nil
}

func (m *Mock) get(ch Channel, quantity string, field func(*ChannelState) *float64) (*float64, error) {
	i, err := ch.Index()
	if err != nil {
		return nil, err
	}
	v := clonePtr(field(&m.channels[i]))
	m.log.Warn(quantity+" readout", "channel", int(ch), optionalAttr("value", v))
	return v, nil
}

// optionalAttr renders an unset value as "unset" instead of a pointer.
func optionalAttr(key string, v *float64) slog.Attr {
	if v == nil {
		return slog.String(key, "unset")
	}
	return slog.Float64(key, *v)
}
