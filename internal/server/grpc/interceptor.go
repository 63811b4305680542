package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jensmemes/memeserver/internal/common"
	"github.com/jensmemes/memeserver/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// requestIDInterceptor tags the call context with the incoming x-request-id,
// or a fresh one, and logs the call.
func (s *HealthServer) requestIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(strings.ToLower(common.RequestIDHeaderName))
		if len(values) > 0 {
			id = values[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	ctx = logging.ContextWithRequestID(ctx, id)

	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"latency", time.Since(start).String(),
	)
	return resp, err
}
