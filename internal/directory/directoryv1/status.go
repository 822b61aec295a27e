package directoryv1

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/multiplay/internal/directory"
)

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{directory.ErrListingNotFound, codes.NotFound},
	{directory.ErrSessionFull, codes.ResourceExhausted},
	{directory.ErrAlreadyInSession, codes.AlreadyExists},
	{directory.ErrInvalidHostToken, codes.PermissionDenied},
	{directory.ErrInvalidAdvert, codes.InvalidArgument},
}

// ToStatus converts a registry error into a gRPC status error.
//
// Postcondition: Returns nil for nil; known registry errors keep their code;
// anything else becomes codes.Internal.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return status.Error(sc.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus converts a gRPC status error back into the matching registry
// error, wrapped with the server's message. Other errors are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, sc := range statusCodes {
		if st.Code() == sc.code {
			return fmt.Errorf("%w: %s", sc.err, st.Message())
		}
	}
	return err
}
