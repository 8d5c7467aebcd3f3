package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for lookups of unknown rows.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownContributor rejects feeds for unregistered contributors
	// before anything is persisted.
	ErrUnknownContributor = errors.New("contributor not found")

	errEmptyPayload        = errors.New("no feed data provided")
	errInactiveContributor = errors.New("contributor is not active")
)

// ValidationError flags caller mistakes surfaced before any persistence.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// DecodeError wraps a wire-format failure. It is feed-content-intrinsic:
// the attempt is recorded KO and identical redelivery is not reprocessed.
type DecodeError struct {
	reason error
}

func (e DecodeError) Error() string {
	return "invalid protobuf"
}

func (e DecodeError) Unwrap() error {
	return e.reason
}

func IsDecodeError(err error) bool {
	var de DecodeError
	return errors.As(err, &de)
}

// ExternalError wraps a collaborator failure (schedule service, storage).
// The attempt is recorded KO, the dedup fingerprint is cleared and the same
// payload may be retried.
type ExternalError struct {
	Op  string
	Err error
}

func (e ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e ExternalError) Unwrap() error {
	return e.Err
}

func IsExternalError(err error) bool {
	var ee ExternalError
	return errors.As(err, &ee)
}
