package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/itohio/dlcpro/pkg/dlcpro"
)

// KindKey is the trailer metadata key carrying the error kind.
const KindKey = "dlcpro-error-kind"

// Error kinds as they travel on the wire.
const (
	KindInvalidChannel  = "InvalidChannel"
	KindConnection      = "ConnectionError"
	KindDeviceIO        = "DeviceIOError"
	KindInvalidArgument = "InvalidArgument"
	KindInternal        = "Internal"
)

var kinds = []struct {
	kind string
	code codes.Code
	err  error
}{
	{KindInvalidChannel, codes.InvalidArgument, dlcpro.ErrInvalidChannel},
	{KindConnection, codes.Unavailable, dlcpro.ErrConnection},
	{KindDeviceIO, codes.Internal, dlcpro.ErrDeviceIO},
	{KindInvalidArgument, codes.InvalidArgument, errInvalidArgument},
}

// RemoteError is a backend error relayed from the server. It unwraps to the
// matching dlcpro sentinel so callers can use errors.Is as with a local backend.
type RemoteError struct {
	Kind    string
	Code    codes.Code
	Message string

	sentinel error
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.sentinel }

// toStatus converts a backend error to a gRPC status and records its kind
// in the trailer.
func toStatus(ctx context.Context, err error) error {
	kind, code := KindInternal, codes.Unknown
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			kind, code = k.kind, k.code
			break
		}
	}
	// Best effort: the status itself still carries code and message.
	_ = grpc.SetTrailer(ctx, metadata.Pairs(KindKey, kind))
	return status.Error(code, err.Error())
}

// fromStatus restores a RemoteError from a failed call.
func fromStatus(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	kind := KindInternal
	if v := trailer.Get(KindKey); len(v) > 0 {
		kind = v[0]
	}

	re := &RemoteError{Kind: kind, Code: st.Code(), Message: st.Message()}
	for _, k := range kinds {
		if k.kind == kind {
			re.sentinel = k.err
			return re
		}
	}

	// Transport failures never reached the backend.
	if st.Code() == codes.Unavailable {
		re.Kind = KindConnection
		re.sentinel = dlcpro.ErrConnection
	}
	return re
}
