package dlcpro

// Device defines the control interface for DLC pro backends (real or simulated).
// Channel-addressed operations fail with ErrInvalidChannel before touching
// any state or I/O when the channel is out of range.
type Device interface {
	// GetEmission reports whether the controller is emitting light.
	GetEmission() (bool, error)

	GetCurrentEnabled(ch Channel) (bool, error)
	SetCurrentEnabled(ch Channel, enabled bool) error

	SetCurrent(ch Channel, value float64) error
	GetCurrentSetpoint(ch Channel) (*float64, error)
	GetCurrentActual(ch Channel) (*float64, error)

	SetVoltage(ch Channel, value float64) error
	GetVoltageSetpoint(ch Channel) (*float64, error)
	GetVoltageActual(ch Channel) (*float64, error)

	SetTemperature(ch Channel, value float64) error
	GetTemperatureSetpoint(ch Channel) (*float64, error)
	GetTemperatureActual(ch Channel) (*float64, error)

	// Ping is a liveness probe.
	Ping() bool
	// Close releases backend resources. It is safe to call more than once.
	Close() error
}

// Base provides the default Ping and Close behaviour shared by backends.
type Base struct{}

// Ping always succeeds once the backend exists.
func (Base) Ping() bool { return true }

// Close does nothing.
func (Base) Close() error { return nil }

// Ensure Hardware implements Device.
var _ Device = (*Hardware)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
