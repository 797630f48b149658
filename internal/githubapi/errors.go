package githubapi

import (
	"errors"
	"fmt"
)

const (
	invalidInputErrorTemplateConstant     = "%s: %s"
	transportErrorTemplateConstant        = "%s request failed with status %d"
	transportErrorWithCauseTemplate       = "%s request failed: %s"
	responseDecodingErrorTemplateConstant = "%s response decoding failed: %s"
	accessTokenMissingMessageConstant     = "github access token not configured"
	requiredValueMessageConstant          = "value required"
)

// OperationName describes a named provider operation.
type OperationName string

// ErrAccessTokenMissing indicates the client was constructed without a token.
var ErrAccessTokenMissing = errors.New(accessTokenMissingMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// TransportError wraps HTTP-level failures, including GraphQL error payloads
// delivered with a 200 status.
type TransportError struct {
	Operation  OperationName
	StatusCode int
	Cause      error
}

// Error describes the transport failure.
func (transportError TransportError) Error() string {
	if transportError.Cause != nil {
		return fmt.Sprintf(transportErrorWithCauseTemplate, transportError.Operation, transportError.Cause)
	}
	return fmt.Sprintf(transportErrorTemplateConstant, transportError.Operation, transportError.StatusCode)
}

// Unwrap exposes the underlying cause.
func (transportError TransportError) Unwrap() error {
	return transportError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}
