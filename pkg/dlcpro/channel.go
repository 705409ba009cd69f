package dlcpro

import "fmt"

// NumChannels is the number of laser channels on the controller.
const NumChannels = 2

// Channel is a 1-based laser channel number.
type Channel int

// Index returns the zero-based index of c, or ErrInvalidChannel.
func (c Channel) Index() (int, error) {
	i := int(c) - 1
	if i < 0 || i >= NumChannels {
		return 0, fmt.Errorf("%w: %d (valid channels are 1..%d)", ErrInvalidChannel, int(c), NumChannels)
	}
	return i, nil
}

// ChannelState is the simulated state of one channel. Nil setpoints have
// never been written.
type ChannelState struct {
	CurrentEnabled      bool
	CurrentSetpoint     *float64
	VoltageSetpoint     *float64
	TemperatureSetpoint *float64
}

// clone returns a deep copy so callers cannot alias stored setpoints.
func (s ChannelState) clone() ChannelState {
	return ChannelState{
		CurrentEnabled:      s.CurrentEnabled,
		CurrentSetpoint:     clonePtr(s.CurrentSetpoint),
		VoltageSetpoint:     clonePtr(s.VoltageSetpoint),
		TemperatureSetpoint: clonePtr(s.TemperatureSetpoint),
	}
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
