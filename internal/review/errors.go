package review

import (
	"errors"
	"fmt"
)

// Kind classifies a ServiceError into one of the recoverable outcomes the
// HTTP layer maps onto status codes.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindInvalidRange Kind = "invalid_range"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindInternal     Kind = "internal"
)

// ServiceError carries a stable machine-readable code of the form
// "operation.reason" together with the error kind and the underlying cause.
type ServiceError struct {
	code string
	kind Kind
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func (e *ServiceError) Kind() Kind {
	return e.kind
}

func newServiceError(operation, reason string, kind Kind, cause error) error {
	return &ServiceError{
		code: fmt.Sprintf("%s.%s", operation, reason),
		kind: kind,
		err:  cause,
	}
}

// KindOf extracts the error kind, defaulting to KindInternal for errors that
// did not originate in this package.
func KindOf(err error) Kind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind()
	}
	return KindInternal
}
