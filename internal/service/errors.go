package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/engine"
	"github.com/mmynk/chitfund/internal/middleware"
)

// toConnectError maps an engine error to a Connect error. The stable error code
// travels in the Chitfund-Error-Code header; anything that is not an
// *apperr.Error becomes an opaque internal error.
func toConnectError(err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	connectErr := connect.NewError(connectCode(appErr), errors.New(appErr.Message))
	connectErr.Meta().Set(middleware.ErrorCodeHeader, appErr.Code)
	return connectErr
}

func connectCode(err *apperr.Error) connect.Code {
	switch err.Kind {
	case apperr.KindValidation:
		return connect.CodeInvalidArgument
	case apperr.KindNotFound:
		return connect.CodeNotFound
	case apperr.KindConflict:
		if errors.Is(err, apperr.ErrConcurrentUpdate) {
			return connect.CodeAborted
		}
		return connect.CodeAlreadyExists
	case apperr.KindForbidden:
		return connect.CodePermissionDenied
	case apperr.KindState:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

// actorFrom builds the engine actor from the identity set by the auth interceptor.
func actorFrom(ctx context.Context) (engine.Actor, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return engine.Actor{}, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return engine.Actor{
		UserID: userID,
		Email:  middleware.GetEmail(ctx),
		Role:   middleware.GetRole(ctx),
	}, nil
}
