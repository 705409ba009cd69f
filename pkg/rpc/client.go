package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/itohio/dlcpro/pkg/dlcpro"
)

// Client is a remote dlcpro.Device.
type Client struct {
	conn *grpc.ClientConn

	// Timeout bounds each call. Zero means no deadline.
	Timeout time.Duration
}

// Ensure Client implements Device.
var _ dlcpro.Device = (*Client)(nil)

// Dial creates a client for the server at target. Without options the
// connection is plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Call invokes a method by name with raw arguments.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (*structpb.Value, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("%w: client closed", dlcpro.ErrConnection)
	}

	in, err := structpb.NewStruct(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	out := new(structpb.Value)
	var trailer metadata.MD
	if err := c.conn.Invoke(ctx, fullMethod(name), in, out, grpc.Trailer(&trailer)); err != nil {
		return nil, fromStatus(err, trailer)
	}
	return out, nil
}

// Close closes the client connection. The remote backend stays open; it is
// owned by the server process.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Ping reports whether the server answers.
func (c *Client) Ping() bool {
	if c.conn == nil {
		return false
	}
	v, err := c.Call(context.Background(), MethodPing, nil)
	return err == nil && v.GetBoolValue()
}

// GetEmission reads the device-wide emission state.
func (c *Client) GetEmission() (bool, error) {
	return c.getBool(MethodGetEmission, nil)
}

// GetCurrentEnabled reads whether the current loop of ch is on.
func (c *Client) GetCurrentEnabled(ch dlcpro.Channel) (bool, error) {
	return c.getBool(MethodGetChannelCurrentOn, chArgs(ch))
}

// SetCurrentEnabled switches the current loop of ch.
func (c *Client) SetCurrentEnabled(ch dlcpro.Channel, enabled bool) error {
	args := chArgs(ch)
	args[ArgEnabled] = enabled
	return c.set(MethodSetChannelCurrentOn, args)
}

// SetCurrent sets the diode current of ch.
func (c *Client) SetCurrent(ch dlcpro.Channel, value float64) error {
	return c.setNumber(MethodSetChannelCurrent, ch, value)
}

// GetCurrentSetpoint reads the current setpoint of ch, nil when unset.
func (c *Client) GetCurrentSetpoint(ch dlcpro.Channel) (*float64, error) {
	return c.getNumber(MethodGetChannelCurrentSetpoint, ch)
}

// GetCurrentActual reads the measured current of ch.
func (c *Client) GetCurrentActual(ch dlcpro.Channel) (*float64, error) {
	return c.getNumber(MethodGetChannelCurrentActual, ch)
}

// SetVoltage sets the piezo voltage of ch.
func (c *Client) SetVoltage(ch dlcpro.Channel, value float64) error {
	return c.setNumber(MethodSetChannelVoltage, ch, value)
}

// GetVoltageSetpoint reads the voltage setpoint of ch, nil when unset.
func (c *Client) GetVoltageSetpoint(ch dlcpro.Channel) (*float64, error) {
	return c.getNumber(MethodGetChannelVoltageSetpoint, ch)
}

// GetVoltageActual reads the measured voltage of ch.
func (c *Client) GetVoltageActual(ch dlcpro.Channel) (*float64, error) {
	return c.getNumber(MethodGetChannelVoltageActual, ch)
}

// SetTemperature sets the diode temperature of ch.
func (c *Client) SetTemperature(ch dlcpro.Channel, value float64) error {
	return c.setNumber(MethodSetChannelTemperature, ch, value)
}

// GetTemperatureSetpoint reads the temperature setpoint of ch, nil when unset.
func (c *Client) GetTemperatureSetpoint(ch dlcpro.Channel) (*float64, error) {
	return c.getNumber(MethodGetChannelTemperatureSetpoint, ch)
}

// GetTemperatureActual reads the measured temperature of ch.
func (c *Client) GetTemperatureActual(ch dlcpro.Channel) (*float64, error) {
	return c.getNumber(MethodGetChannelTemperatureActual, ch)
}

func chArgs(ch dlcpro.Channel) map[string]any {
	return map[string]any{ArgChannel: int(ch)}
}

func (c *Client) call(name string, args map[string]any) (*structpb.Value, error) {
	return c.Call(context.Background(), name, args)
}

func (c *Client) set(name string, args map[string]any) error {
	_, err := c.call(name, args)
	return err
}

func (c *Client) setNumber(name string, ch dlcpro.Channel, value float64) error {
	args := chArgs(ch)
	args[ArgValue] = value
	return c.set(name, args)
}

func (c *Client) getBool(name string, args map[string]any) (bool, error) {
	v, err := c.call(name, args)
	if err != nil {
		return false, err
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%s: expected a boolean result, got %v", name, v)
	}
	return b.BoolValue, nil
}

func (c *Client) getNumber(name string, ch dlcpro.Channel) (*float64, error) {
	v, err := c.call(name, chArgs(ch))
	if err != nil {
		return nil, err
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		return &n, nil
	}
	return nil, fmt.Errorf("%s: expected a number or null result, got %v", name, v)
}
