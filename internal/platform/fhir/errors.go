package fhir

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// OutcomeError is a failure that reaches the client as an HTTP status plus an
// OperationOutcome body.
type OutcomeError struct {
	Status  int
	Outcome *fhirmodels.OperationOutcome
}

func (e *OutcomeError) Error() string {
	if e.Outcome == nil || len(e.Outcome.Issue) == 0 {
		return http.StatusText(e.Status)
	}
	issue := e.Outcome.Issue[0]
	return fmt.Sprintf("%d %s: %s", e.Status, issue.Code, issue.Diagnostics)
}

// StatusCode returns the HTTP status code for this error.
func (e *OutcomeError) StatusCode() int {
	return e.Status
}

// Code returns the issue code of the first issue.
func (e *OutcomeError) Code() string {
	if e.Outcome == nil || len(e.Outcome.Issue) == 0 {
		return ""
	}
	return e.Outcome.Issue[0].Code
}

func ErrInvalid(expression, format string, args ...any) *OutcomeError {
	return &OutcomeError{
		Status:  http.StatusBadRequest,
		Outcome: InvariantOutcome(expression, fmt.Sprintf(format, args...)),
	}
}

func ErrNotFound(resourceType, id string) *OutcomeError {
	return &OutcomeError{Status: http.StatusNotFound, Outcome: NotFoundOutcome(resourceType, id)}
}

func ErrMultipleMatches(interaction string, count int) *OutcomeError {
	return &OutcomeError{
		Status:  http.StatusPreconditionFailed,
		Outcome: MultipleMatchesOutcome(interaction, count),
	}
}

func ErrUnrouted(format string, args ...any) *OutcomeError {
	return &OutcomeError{
		Status:  http.StatusNotFound,
		Outcome: NotSupportedOutcome(fmt.Sprintf(format, args...)),
	}
}

func ErrMethodNotAllowed(method string) *OutcomeError {
	return &OutcomeError{
		Status:  http.StatusMethodNotAllowed,
		Outcome: NotSupportedOutcome(fmt.Sprintf("HTTP method %s is not allowed on this resource", method)),
	}
}

func ErrConflict(format string, args ...any) *OutcomeError {
	return &OutcomeError{
		Status:  http.StatusConflict,
		Outcome: ConflictOutcome(fmt.Sprintf(format, args...)),
	}
}

// AsOutcomeError converts any error into an OutcomeError. Errors that are not
// already OutcomeErrors become 500 exceptions.
func AsOutcomeError(err error) *OutcomeError {
	var oe *OutcomeError
	if errors.As(err, &oe) {
		return oe
	}
	return &OutcomeError{
		Status:  http.StatusInternalServerError,
		Outcome: InternalErrorOutcome(err.Error()),
	}
}
