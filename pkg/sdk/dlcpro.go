package sdk

import (
	"fmt"
	"net"
	"os"
	"time"
)

// Lasers is the number of laser heads on a dual-laser DLC pro.
const Lasers = 2

// CurrentControl is the laser diode current loop (dl:cc).
type CurrentControl struct {
	Enabled    BoolParam
	CurrentSet FloatParam
	CurrentAct FloatReading
}

// PiezoControl is the piezo voltage loop (dl:pc).
type PiezoControl struct {
	VoltageSet FloatParam
	VoltageAct FloatReading
}

// TemperatureControl is the diode temperature loop (dl:tc).
type TemperatureControl struct {
	TempSet FloatParam
	TempAct FloatReading
}

// LaserHead groups the control loops of one laser head (dl).
type LaserHead struct {
	CC CurrentControl
	PC PiezoControl
	TC TemperatureControl
}

// Laser is one physical laser (laser1, laser2).
type Laser struct {
	DL LaserHead
}

// DLCpro is the parameter tree of a connected controller.
type DLCpro struct {
	client *Client

	Emission BoolReading
	Lasers   [Lasers]Laser
}

// Open reads the banner from t and builds the parameter tree on it.
func Open(t Transport) (*DLCpro, error) {
	c, err := NewClient(t)
	if err != nil {
		return nil, err
	}

	d := &DLCpro{
		client:   c,
		Emission: BoolReading{c: c, name: "emission"},
	}
	for i := range d.Lasers {
		d.Lasers[i] = newLaser(c, fmt.Sprintf("laser%d", i+1))
	}

	return d, nil
}

// OpenTimeout is Open with a bound on the wait for the banner. A
// controller that accepts the connection but stays silent fails with
// os.ErrDeadlineExceeded and t is closed. timeout <= 0 means DefaultTimeout.
func OpenTimeout(t Transport, timeout time.Duration) (*DLCpro, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if conn, ok := t.(net.Conn); ok {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err == nil {
			d, err := Open(t)
			if err != nil {
				return nil, err
			}
			conn.SetReadDeadline(time.Time{})
			return d, nil
		}
	}

	// Serial ports have no deadlines; closing the port unblocks the read.
	timer := time.AfterFunc(timeout, func() { t.Close() })
	d, err := Open(t)
	if !timer.Stop() {
		if err == nil {
			d.Close()
		}
		return nil, fmt.Errorf("no banner within %v: %w", timeout, os.ErrDeadlineExceeded)
	}
	return d, err
}

// Close closes the underlying connection.
func (d *DLCpro) Close() error {
	return d.client.Close()
}

func newLaser(c *Client, prefix string) Laser {
	dl := prefix + ":dl"
	return Laser{
		DL: LaserHead{
			CC: CurrentControl{
				Enabled:    BoolParam{c: c, name: dl + ":cc:enabled"},
				CurrentSet: FloatParam{c: c, name: dl + ":cc:current-set"},
				CurrentAct: FloatReading{c: c, name: dl + ":cc:current-act"},
			},
			PC: PiezoControl{
				VoltageSet: FloatParam{c: c, name: dl + ":pc:voltage-set"},
				VoltageAct: FloatReading{c: c, name: dl + ":pc:voltage-act"},
			},
			TC: TemperatureControl{
				TempSet: FloatParam{c: c, name: dl + ":tc:temp-set"},
				TempAct: FloatReading{c: c, name: dl + ":tc:temp-act"},
			},
		},
	}
}
