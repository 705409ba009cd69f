// Package rpc exposes a dlcpro.Device over gRPC.
//
// Methods take a google.protobuf.Struct of named arguments ("channel",
// "value", "enabled") and return a google.protobuf.Value: a bool, a number,
// or null for an unset setpoint. Both map directly onto JSON, so any gRPC
// client with the well-known types can drive the controller.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/itohio/dlcpro/pkg/dlcpro"
)

// ServiceName is the gRPC service the driver is registered under.
const ServiceName = "dlcpro.Driver"

// Method names.
const (
	MethodGetEmission                   = "GetEmission"
	MethodGetChannelCurrentOn           = "GetChannelCurrentOn"
	MethodSetChannelCurrentOn           = "SetChannelCurrentOn"
	MethodSetChannelCurrent             = "SetChannelCurrent"
	MethodGetChannelCurrentSetpoint     = "GetChannelCurrentSetpoint"
	MethodGetChannelCurrentActual       = "GetChannelCurrentActual"
	MethodSetChannelVoltage             = "SetChannelVoltage"
	MethodGetChannelVoltageSetpoint     = "GetChannelVoltageSetpoint"
	MethodGetChannelVoltageActual       = "GetChannelVoltageActual"
	MethodSetChannelTemperature         = "SetChannelTemperature"
	MethodGetChannelTemperatureSetpoint = "GetChannelTemperatureSetpoint"
	MethodGetChannelTemperatureActual   = "GetChannelTemperatureActual"
	MethodPing                          = "Ping"
)

// Argument names.
const (
	ArgChannel = "channel"
	ArgValue   = "value"
	ArgEnabled = "enabled"
)

var errInvalidArgument = errors.New("invalid argument")

type method struct {
	name string
	call func(dev dlcpro.Device, args *structpb.Struct) (*structpb.Value, error)
}

var methods = []method{
	{MethodGetEmission, func(dev dlcpro.Device, _ *structpb.Struct) (*structpb.Value, error) {
		on, err := dev.GetEmission()
		return boolResult(on, err)
	}},
	{MethodGetChannelCurrentOn, func(dev dlcpro.Device, args *structpb.Struct) (*structpb.Value, error) {
		ch, err := channelArg(args)
		if err != nil {
			return nil, err
		}
		return boolResult(dev.GetCurrentEnabled(ch))
	}},
	{MethodSetChannelCurrentOn, func(dev dlcpro.Device, args *structpb.Struct) (*structpb.Value, error) {
		ch, err := channelArg(args)
		if err != nil {
			return nil, err
		}
		enabled, err := boolArg(args, ArgEnabled)
		if err != nil {
			return nil, err
		}
		return voidResult(dev.SetCurrentEnabled(ch, enabled))
	}},
	setter(MethodSetChannelCurrent, dlcpro.Device.SetCurrent),
	getter(MethodGetChannelCurrentSetpoint, dlcpro.Device.GetCurrentSetpoint),
	getter(MethodGetChannelCurrentActual, dlcpro.Device.GetCurrentActual),
	setter(MethodSetChannelVoltage, dlcpro.Device.SetVoltage),
	getter(MethodGetChannelVoltageSetpoint, dlcpro.Device.GetVoltageSetpoint),
	getter(MethodGetChannelVoltageActual, dlcpro.Device.GetVoltageActual),
	setter(MethodSetChannelTemperature, dlcpro.Device.SetTemperature),
	getter(MethodGetChannelTemperatureSetpoint, dlcpro.Device.GetTemperatureSetpoint),
	getter(MethodGetChannelTemperatureActual, dlcpro.Device.GetTemperatureActual),
	{MethodPing, func(dev dlcpro.Device, _ *structpb.Struct) (*structpb.Value, error) {
		return structpb.NewBoolValue(dev.Ping()), nil
	}},
}

func setter(name string, set func(dlcpro.Device, dlcpro.Channel, float64) error) method {
	return method{name, func(dev dlcpro.Device, args *structpb.Struct) (*structpb.Value, error) {
		ch, err := channelArg(args)
		if err != nil {
			return nil, err
		}
		v, err := numberArg(args, ArgValue)
		if err != nil {
			return nil, err
		}
		return voidResult(set(dev, ch, v))
	}}
}

func getter(name string, get func(dlcpro.Device, dlcpro.Channel) (*float64, error)) method {
	return method{name, func(dev dlcpro.Device, args *structpb.Struct) (*structpb.Value, error) {
		ch, err := channelArg(args)
		if err != nil {
			return nil, err
		}
		v, err := get(dev, ch)
		if err != nil {
			return nil, err
		}
		return optionalValue(v), nil
	}}
}

// driverServer is the handler type registered with grpc.
type driverServer interface {
	invoke(ctx context.Context, m method, args *structpb.Struct) (*structpb.Value, error)
}

var serviceDesc = func() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*driverServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "dlcpro/driver",
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m.name,
			Handler:    methodHandler(m),
		})
	}
	return desc
}()

func methodHandler(m method) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(driverServer)
		if interceptor == nil {
			return s.invoke(ctx, m, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(m.name),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return s.invoke(ctx, m, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func channelArg(args *structpb.Struct) (dlcpro.Channel, error) {
	v, err := numberArg(args, ArgChannel)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: channel must be an integer, got %v", errInvalidArgument, v)
	}
	if math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", dlcpro.ErrInvalidChannel, v)
	}
	return dlcpro.Channel(v), nil
}

func numberArg(args *structpb.Struct, name string) (float64, error) {
	v, ok := args.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", errInvalidArgument, name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q must be a number", errInvalidArgument, name)
	}
	return n.NumberValue, nil
}

func boolArg(args *structpb.Struct, name string) (bool, error) {
	v, ok := args.GetFields()[name]
	if !ok {
		return false, fmt.Errorf("%w: missing %q", errInvalidArgument, name)
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %q must be a boolean", errInvalidArgument, name)
	}
	return b.BoolValue, nil
}

func boolResult(v bool, err error) (*structpb.Value, error) {
	if err != nil {
		return nil, err
	}
	return structpb.NewBoolValue(v), nil
}

func voidResult(err error) (*structpb.Value, error) {
	if err != nil {
		return nil, err
	}
	return structpb.NewNullValue(), nil
}

func optionalValue(v *float64) *structpb.Value {
	if v == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewNumberValue(*v)
}
