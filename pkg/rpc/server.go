package rpc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/itohio/dlcpro/pkg/dlcpro"
)

// handler dispatches calls to the backend one at a time.
type handler struct {
	dev dlcpro.Device
	log *slog.Logger
	mu  sync.Mutex
}

// Ensure handler satisfies the registered handler type.
var _ driverServer = (*handler)(nil)

// NewServer returns a gRPC server exposing dev under ServiceName.
// Calls are serialized: the backend never sees two operations at once.
// A nil logger uses slog.Default().
func NewServer(dev dlcpro.Device, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		dev: dev,
		log: logger.With("service", ServiceName),
	}

	opts = append(opts, grpc.ChainUnaryInterceptor(h.trace, h.serialize))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, h)
	return srv
}

func (h *handler) invoke(ctx context.Context, m method, args *structpb.Struct) (*structpb.Value, error) {
	out, err := m.call(h.dev, args)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return out, nil
}

// serialize holds the dispatch lock for the duration of a call. The call
// runs to completion even if the client goes away.
func (h *handler) serialize(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return next(context.WithoutCancel(ctx), req)
}

// trace logs every call with a unique call ID.
func (h *handler) trace(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	id := uuid.NewString()
	log := h.log.With("call", id, "method", info.FullMethod)
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		log = log.With("peer", p.Addr.String())
	}

	start := time.Now()
	resp, err := next(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		log.Info("call failed", "duration", elapsed, "error", err)
	} else {
		log.Debug("call", "duration", elapsed)
	}
	return resp, err
}
