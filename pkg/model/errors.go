// Package model holds the domain types shared by the datastore and the
// orchestrator: studies, trials, long-running operations, metadata, and
// the error-kind taxonomy.
package model

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

// Error is the in-process error-kind representation used across the
// datastore and orchestrator layers. It carries a gRPC status code so
// callers (and tests) can classify failures without this module taking
// on any actual wire transport.
type Error struct {
	Code    codes.Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the gRPC code from err, defaulting to codes.Unknown
// for errors that were not constructed via this package.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return codes.Unknown
}

// NotFoundf reports a not-found condition: an unknown study/trial/operation.
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Code: codes.NotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentf reports a malformed request: bad resource name, an
// empty required field, a name supplied where the service assigns one,
// or a CompleteTrial call without a measurement.
func InvalidArgumentf(format string, args ...interface{}) error {
	return &Error{Code: codes.InvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// ResourceExhaustedf reports the per-owner study cap being reached.
func ResourceExhaustedf(format string, args ...interface{}) error {
	return &Error{Code: codes.ResourceExhausted, Message: fmt.Sprintf(format, args...)}
}

// FailedPreconditionf reports an experimenter transform receiving an
// incompatible search space.
func FailedPreconditionf(format string, args ...interface{}) error {
	return &Error{Code: codes.FailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

// Internalf reports an external-failure: a Policy RPC error or a
// datastore failure that isn't one of the above.
func Internalf(format string, args ...interface{}) error {
	return &Error{Code: codes.Internal, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a not-found Error.
func IsNotFound(err error) bool {
	return CodeOf(err) == codes.NotFound
}
