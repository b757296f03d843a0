package fhir

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// ContentTypeFHIRJSON is the media type of every response body.
const ContentTypeFHIRJSON = "application/fhir+json"

var (
	resourceTypePattern = regexp.MustCompile(`^[A-Z][A-Za-z]+$`)
	// FHIR id: 1-64 characters from [A-Za-z0-9\-\.].
	idPattern = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)
)

// IsResourceType reports whether s looks like a FHIR resource type name.
func IsResourceType(s string) bool {
	return resourceTypePattern.MatchString(s)
}

// IsValidID reports whether s is a syntactically valid FHIR logical id.
func IsValidID(s string) bool {
	return idPattern.MatchString(s)
}

// UnmarshalJSON decodes a single JSON document into v. Numbers are kept as
// json.Number so integers beyond 2^53 and decimals such as 1.10 survive a
// round trip unchanged.
func UnmarshalJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after the top-level value")
	}
	return nil
}

// DecodeResource parses a request body into a resource. The body must be a
// JSON object.
func DecodeResource(body []byte) (fhirmodels.Resource, error) {
	if len(body) == 0 {
		return nil, ErrInvalid("", "request body is empty")
	}
	var r fhirmodels.Resource
	if err := UnmarshalJSON(body, &r); err != nil {
		return nil, ErrInvalid("", "request body is not a JSON object: %v", err)
	}
	if r == nil {
		return nil, ErrInvalid("", "request body is not a JSON object")
	}
	return r, nil
}

// ValidateResourceType checks that r declares the resource type of the path.
func ValidateResourceType(r fhirmodels.Resource, pathType string) error {
	rt, present := r["resourceType"]
	if !present {
		return ErrInvalid("resourceType", "resourceType is required")
	}
	s, ok := rt.(string)
	if !ok || s == "" {
		return ErrInvalid("resourceType", "resourceType must be a non-empty string")
	}
	if s != pathType {
		return ErrInvalid("resourceType",
			"resourceType %q does not match the request path type %q", s, pathType)
	}
	return nil
}

// ValidateBodyID checks an optional body id. A present id must be a
// non-empty, well-formed string.
func ValidateBodyID(r fhirmodels.Resource) error {
	v, present := r["id"]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || !IsValidID(s) {
		return ErrInvalid("id", "id %v is not a valid FHIR id", v)
	}
	return nil
}

// BodyID returns the body id when it is a well-formed FHIR id.
func BodyID(r fhirmodels.Resource) (string, bool) {
	s, ok := r["id"].(string)
	return s, ok && IsValidID(s)
}
