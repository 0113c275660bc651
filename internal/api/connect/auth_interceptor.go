package connect

import (
	"context"
	"crypto/subtle"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
	// RequestIDHeader carries the ID logged for each request.
	RequestIDHeader = "X-Request-Id"
)

// NewAdminAuthInterceptor creates an interceptor that validates admin tokens
// from request metadata for PlayerService methods.
func NewAdminAuthInterceptor(adminToken string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			// Extract token from metadata
			token := req.Header().Get(AdminTokenHeader)
			if token == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			// Validate token
			if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			// Call next handler
			return next(ctx, req)
		}
	}
}

// NewLoggingInterceptor logs every unary call with a request ID, which is
// echoed back in the response headers.
func NewLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			requestID := req.Header().Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			started := time.Now()

			resp, err := next(ctx, req)

			elapsed := time.Since(started).Round(time.Microsecond)
			if err != nil {
				zlog.Warn().Msgf("rpc: %s failed: request_id=%s code=%s elapsed=%v error=%v",
					req.Spec().Procedure, requestID, connect.CodeOf(err), elapsed, err)
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					connectErr.Meta().Set(RequestIDHeader, requestID)
				}
				return nil, err
			}

			zlog.Debug().Msgf("rpc: %s ok: request_id=%s elapsed=%v", req.Spec().Procedure, requestID, elapsed)
			resp.Header().Set(RequestIDHeader, requestID)
			return resp, nil
		}
	}
}
