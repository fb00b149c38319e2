package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// ErrorCodeHeader carries the stable application error code (e.g. ALREADY_PAID)
// next to the Connect status code.
const ErrorCodeHeader = "Chitfund-Error-Code"

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// Caller errors are logged at warn, server faults at error.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", procedure,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			// Empty when this interceptor runs before auth.
			if userID := GetUserID(ctx); userID != "" {
				attrs = append(attrs, "user_id", userID)
			}

			var connectErr *connect.Error
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case errors.As(err, &connectErr) && !serverFault(connectErr.Code()):
				attrs = append(attrs, "code", connectErr.Code(), "error", connectErr.Message())
				if appCode := connectErr.Meta().Get(ErrorCodeHeader); appCode != "" {
					attrs = append(attrs, "error_code", appCode)
				}
				slog.Warn("RPC error", attrs...)
			default:
				slog.Error("RPC error", append(attrs, "error", err)...)
			}

			return resp, err
		}
	}
}

func serverFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
