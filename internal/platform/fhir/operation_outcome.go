package fhir

import (
	"fmt"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// OperationOutcome severity levels (FHIR R4).
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes (FHIR R4).
const (
	IssueTypeInvalid         = "invalid"
	IssueTypeInvariant       = "invariant"
	IssueTypeNotFound        = "not-found"
	IssueTypeConflict        = "conflict"
	IssueTypeMultipleMatches = "multiple-matches"
	IssueTypeNotSupported    = "not-supported"
	IssueTypeProcessing      = "processing"
	IssueTypeTooCostly       = "too-costly"
	IssueTypeException       = "exception"
	IssueTypeInformational   = "informational"
)

// NewOperationOutcome builds a single-issue OperationOutcome.
func NewOperationOutcome(severity, code, diagnostics string) *fhirmodels.OperationOutcome {
	return &fhirmodels.OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []fhirmodels.OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

// OutcomeBuilder provides a fluent API for constructing OperationOutcome resources.
type OutcomeBuilder struct {
	outcome *fhirmodels.OperationOutcome
}

// NewOutcomeBuilder creates a new OutcomeBuilder.
func NewOutcomeBuilder() *OutcomeBuilder {
	return &OutcomeBuilder{
		outcome: &fhirmodels.OperationOutcome{
			ResourceType: "OperationOutcome",
		},
	}
}

// AddIssue adds a single issue to the OperationOutcome.
func (b *OutcomeBuilder) AddIssue(severity, code, diagnostics string) *OutcomeBuilder {
	b.outcome.Issue = append(b.outcome.Issue, fhirmodels.OperationOutcomeIssue{
		Severity:    severity,
		Code:        code,
		Diagnostics: diagnostics,
	})
	return b
}

// AddIssueWithLocation adds an issue including an expression/location path.
func (b *OutcomeBuilder) AddIssueWithLocation(severity, code, diagnostics, location string) *OutcomeBuilder {
	b.outcome.Issue = append(b.outcome.Issue, fhirmodels.OperationOutcomeIssue{
		Severity:    severity,
		Code:        code,
		Diagnostics: diagnostics,
		Expression:  []string{location},
	})
	return b
}

// Build returns the constructed OperationOutcome.
func (b *OutcomeBuilder) Build() *fhirmodels.OperationOutcome {
	return b.outcome
}

// InformationOutcome creates an informational OperationOutcome.
func InformationOutcome(diagnostics string) *fhirmodels.OperationOutcome {
	return NewOperationOutcome(IssueSeverityInformation, IssueTypeInformational, diagnostics)
}

// InvariantOutcome creates an OperationOutcome for a malformed request. The
// expression points at the offending element when known.
func InvariantOutcome(expression, diagnostics string) *fhirmodels.OperationOutcome {
	b := NewOutcomeBuilder()
	if expression == "" {
		return b.AddIssue(IssueSeverityError, IssueTypeInvariant, diagnostics).Build()
	}
	return b.AddIssueWithLocation(IssueSeverityError, IssueTypeInvariant, diagnostics, expression).Build()
}

func NotFoundOutcome(resourceType, id string) *fhirmodels.OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotFound,
		fmt.Sprintf("Resource %s/%s not found", resourceType, id))
}

// MultipleMatchesOutcome creates a 412-style OperationOutcome for a conditional
// interaction whose criteria matched more than one resource.
func MultipleMatchesOutcome(interaction string, count int) *fhirmodels.OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeMultipleMatches,
		fmt.Sprintf("Multiple resources match the %s criteria: %d found", interaction, count))
}

// NotSupportedOutcome creates an OperationOutcome for unrouted or unsupported requests.
func NotSupportedOutcome(diagnostics string) *fhirmodels.OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotSupported, diagnostics)
}

// ConflictOutcome creates an OperationOutcome for a version conflict.
func ConflictOutcome(diagnostics string) *fhirmodels.OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeConflict, diagnostics)
}

// InternalErrorOutcome creates an OperationOutcome for internal server errors.
func InternalErrorOutcome(diagnostics string) *fhirmodels.OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, diagnostics)
}

// UnknownParamsOutcome warns about search parameters the server ignored.
func UnknownParamsOutcome(names []string) *fhirmodels.OperationOutcome {
	b := NewOutcomeBuilder()
	for _, n := range names {
		b.AddIssueWithLocation(IssueSeverityWarning, IssueTypeNotSupported,
			fmt.Sprintf("Search parameter %q is not supported and was ignored", n), n)
	}
	return b.Build()
}
