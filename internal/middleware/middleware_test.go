package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
)

type ping struct{}

func capture(seen *context.Context) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		*seen = ctx
		return connect.NewResponse(&ping{}), nil
	}
}

func TestRequireAuth(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Hour)
	user := models.NewUser("org@example.com", "Org", "", models.RoleOrganizer)
	token, err := m.Generate(user)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		header   string
		wantCode connect.Code
	}{
		{"valid", "Bearer " + token, 0},
		{"lowercase scheme", "bearer " + token, 0},
		{"missing", "", connect.CodeUnauthenticated},
		{"wrong scheme", "Basic " + token, connect.CodeUnauthenticated},
		{"bad token", "Bearer nope", connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen context.Context
			call := RequireAuth(m)(capture(&seen))
			req := connect.NewRequest(&ping{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := call(context.Background(), req)
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Fatalf("Code = %v, want %v (err %v)", connect.CodeOf(err), tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if GetUserID(seen) != user.ID || GetEmail(seen) != user.Email || GetRole(seen) != models.RoleOrganizer {
				t.Errorf("Identity not propagated: %q %q %q", GetUserID(seen), GetEmail(seen), GetRole(seen))
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Hour)

	var seen context.Context
	call := OptionalAuth(m)(capture(&seen))
	req := connect.NewRequest(&ping{})
	req.Header().Set("Authorization", "Bearer garbage")
	if _, err := call(context.Background(), req); err != nil {
		t.Fatalf("OptionalAuth should not fail on a bad token: %v", err)
	}
	if GetUserID(seen) != "" {
		t.Errorf("Expected anonymous context, got user %q", GetUserID(seen))
	}
}

func TestMetricsInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	ok := MetricsInterceptor(rec)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&ping{}), nil
	})
	failing := MetricsInterceptor(rec)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeAborted, errors.New("retry"))
	})

	if _, err := ok(context.Background(), connect.NewRequest(&ping{})); err != nil {
		t.Fatal(err)
	}
	if _, err := failing(context.Background(), connect.NewRequest(&ping{})); err == nil {
		t.Fatal("Expected the handler error to pass through")
	}

	if n := testutil.CollectAndCount(reg, "chitfund_rpc_duration_seconds"); n != 2 {
		t.Errorf("Expected two label sets for RPC latency, got %d", n)
	}
}
