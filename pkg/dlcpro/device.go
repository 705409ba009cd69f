package dlcpro

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/itohio/dlcpro/pkg/sdk"
)

// Hardware drives a physical DLC pro through the vendor command line.
type Hardware struct {
	Base

	address string
	dlc     *sdk.DLCpro
	log     *slog.Logger
}

// NewHardware connects to the controller at address. See sdk.Dial for the
// accepted address forms. timeout bounds both the connection attempt and
// the wait for the controller's prompt. Failure to connect yields
// ErrConnection. A nil logger uses slog.Default().
func NewHardware(address string, timeout time.Duration, logger *slog.Logger) (*Hardware, error) {
	t, err := sdk.Dial(address, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	dlc, err := sdk.OpenTimeout(t, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, address, err)
	}
	h := newHardware(dlc, logger)
	h.address = address
	return h, nil
}

// OpenHardware builds a backend on an already open transport.
func OpenHardware(t sdk.Transport, logger *slog.Logger) (*Hardware, error) {
	dlc, err := sdk.Open(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return newHardware(dlc, logger), nil
}

func newHardware(dlc *sdk.DLCpro, logger *slog.Logger) *Hardware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hardware{dlc: dlc, log: logger.With("backend", "hardware")}
}

// Address returns the address the backend was dialed with, if any.
func (h *Hardware) Address() string {
	return h.address
}

// Close releases the device connection. Subsequent calls are no-ops.
func (h *Hardware) Close() error {
	if h.dlc == nil {
		return nil
	}
	if err := h.dlc.Close(); err != nil {
		h.log.Warn("error closing device connection", "address", h.address, "error", err)
	}
	h.dlc = nil
	return nil
}

// GetEmission reads the device-wide emission state.
func (h *Hardware) GetEmission() (bool, error) {
	if h.dlc == nil {
		return false, errClosed
	}
	on, err := h.dlc.Emission.Get()
	if err != nil {
		return false, ioError("read emission", 0, err)
	}
	return on, nil
}

// laser resolves ch to its SDK sub-object.
func (h *Hardware) laser(ch Channel) (*sdk.Laser, error) {
	i, err := ch.Index()
	if err != nil {
		return nil, err
	}
	if h.dlc == nil {
		return nil, errClosed
	}
	return &h.dlc.Lasers[i], nil
}

// GetCurrentEnabled reads dl:cc:enabled of ch.
func (h *Hardware) GetCurrentEnabled(ch Channel) (bool, error) {
	l, err := h.laser(ch)
	if err != nil {
		return false, err
	}
	on, err := l.DL.CC.Enabled.Get()
	if err != nil {
		return false, ioError("read current enabled", ch, err)
	}
	return on, nil
}

// SetCurrentEnabled writes dl:cc:enabled of ch.
func (h *Hardware) SetCurrentEnabled(ch Channel, enabled bool) error {
	l, err := h.laser(ch)
	if err != nil {
		return err
	}
	if err := l.DL.CC.Enabled.Set(enabled); err != nil {
		return ioError("write current enabled", ch, err)
	}
	return nil
}

// SetCurrent writes dl:cc:current-set of ch.
func (h *Hardware) SetCurrent(ch Channel, value float64) error {
	l, err := h.laser(ch)
	if err != nil {
		return err
	}
	return writeFloat(l.DL.CC.CurrentSet, ch, value)
}

// GetCurrentSetpoint reads dl:cc:current-set of ch.
func (h *Hardware) GetCurrentSetpoint(ch Channel) (*float64, error) {
	l, err := h.laser(ch)
	if err != nil {
		return nil, err
	}
	return readFloat(l.DL.CC.CurrentSet, ch)
}

// GetCurrentActual reads dl:cc:current-act of ch.
func (h *Hardware) GetCurrentActual(ch Channel) (*float64, error) {
	l, err := h.laser(ch)
	if err != nil {
		return nil, err
	}
	return readFloat(l.DL.CC.CurrentAct, ch)
}

// SetVoltage writes dl:pc:voltage-set of ch.
func (h *Hardware) SetVoltage(ch Channel, value float64) error {
	l, err := h.laser(ch)
	if err != nil {
		return err
	}
	return writeFloat(l.DL.PC.VoltageSet, ch, value)
}

// GetVoltageSetpoint reads dl:pc:voltage-set of ch.
func (h *Hardware) GetVoltageSetpoint(ch Channel) (*float64, error) {
	l, err := h.laser(ch)
	if err != nil {
		return nil, err
	}
	return readFloat(l.DL.PC.VoltageSet, ch)
}

// GetVoltageActual reads dl:pc:voltage-act of ch.
func (h *Hardware) GetVoltageActual(ch Channel) (*float64, error) {
	l, err := h.laser(ch)
	if err != nil {
		return nil, err
	}
	return readFloat(l.DL.PC.VoltageAct, ch)
}

// SetTemperature writes dl:tc:temp-set of ch.
func (h *Hardware) SetTemperature(ch Channel, value float64) error {
	l, err := h.laser(ch)
	if err != nil {
		return err
	}
	return writeFloat(l.DL.TC.TempSet, ch, value)
}

// GetTemperatureSetpoint reads dl:tc:temp-set of ch.
func (h *Hardware) GetTemperatureSetpoint(ch Channel) (*float64, error) {
	l, err := h.laser(ch)
	if err != nil {
		return nil, err
	}
	return readFloat(l.DL.TC.TempSet, ch)
}

// GetTemperatureActual reads dl:tc:temp-act of ch.
func (h *Hardware) GetTemperatureActual(ch Channel) (*float64, error) {
	l, err := h.laser(ch)
	if err != nil {
		return nil, err
	}
	return readFloat(l.DL.TC.TempAct, ch)
}

var errClosed = fmt.Errorf("%w: %w", ErrConnection, sdk.ErrClosed)

type floatReader interface {
	Name() string
	Get() (float64, error)
}

type floatWriter interface {
	Name() string
	Set(float64) error
}

func readFloat(p floatReader, ch Channel) (*float64, error) {
	v, err := p.Get()
	if err != nil {
		return nil, ioError("read "+p.Name(), ch, err)
	}
	return &v, nil
}

func writeFloat(p floatWriter, ch Channel, value float64) error {
	if err := p.Set(value); err != nil {
		return ioError("write "+p.Name(), ch, err)
	}
	return nil
}

// ioError classifies an SDK failure. A closed or dropped connection is a
// connection error; anything else is a device I/O error.
func ioError(op string, ch Channel, err error) error {
	kind := ErrDeviceIO
	var devErr *sdk.DeviceError
	if !errors.As(err, &devErr) && isConnectionLoss(err) {
		kind = ErrConnection
	}
	if ch == 0 {
		return fmt.Errorf("%w: %s: %w", kind, op, err)
	}
	return fmt.Errorf("%w: channel %d: %s: %w", kind, int(ch), op, err)
}

func isConnectionLoss(err error) bool {
	var opErr *net.OpError
	return errors.Is(err, sdk.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.As(err, &opErr)
}
