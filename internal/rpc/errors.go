package rpc

import (
	"context"
	"errors"
	"strings"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/backend/local"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// sentinels are the backend errors that survive the wire: the server maps
// them to a code and the client matches them again with errors.Is.
var sentinels = []struct {
	err  error
	code codes.Code
}{
	{local.ErrNotFound, codes.NotFound},
	{local.ErrInvalidAddress, codes.InvalidArgument},
	{local.ErrCannotSend, codes.InvalidArgument},
	{local.ErrDuplicateAccount, codes.FailedPrecondition},
	{local.ErrAlreadyConfigured, codes.FailedPrecondition},
	{local.ErrNotConfigured, codes.FailedPrecondition},
	{backend.ErrNoSelectedAccount, codes.FailedPrecondition},
}

// toStatus converts a backend error to a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		for _, s := range sentinels {
			if errors.Is(err, s.err) {
				code = s.code
				break
			}
		}
	}
	return grpcstatus.Error(code, err.Error())
}

// remoteError is a status error received from the daemon.
type remoteError struct {
	st *grpcstatus.Status
}

func (e *remoteError) Error() string                  { return e.st.Message() }
func (e *remoteError) GRPCStatus() *grpcstatus.Status { return e.st }

func (e *remoteError) Is(target error) bool {
	for _, s := range sentinels {
		if s.err == target {
			return e.st.Code() == s.code && strings.Contains(e.st.Message(), target.Error())
		}
	}
	switch target {
	case context.Canceled:
		return e.st.Code() == codes.Canceled
	case context.DeadlineExceeded:
		return e.st.Code() == codes.DeadlineExceeded
	}
	return false
}

// fromStatus converts a status error from the wire.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return err
	}
	return &remoteError{st: st}
}

// IsUnavailable reports whether err means the daemon is not reachable.
func IsUnavailable(err error) bool {
	return grpcstatus.Code(err) == codes.Unavailable
}
