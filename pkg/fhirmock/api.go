package fhirmock

import (
	"net/url"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/internal/search"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// The direct API mirrors the HTTP interactions. Failures are returned as
// *fhir.OutcomeError values carrying the status and OperationOutcome an
// HTTP caller would have received.

// CreateResource stores r under its resourceType. A non-empty ifNoneExist
// makes the create conditional; when it matches one resource the envelope
// carries that resource with Created false.
func (s *Server) CreateResource(r fhirmodels.Resource, ifNoneExist string) (*fhirmodels.Envelope, error) {
	resourceType, err := payloadType(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.create(resourceType, r, ifNoneExist)
	if err != nil {
		return nil, err
	}
	return s.envelope(res), nil
}

// ReadResource returns a copy of the stored resource.
func (s *Server) ReadResource(resourceType, id string) (fhirmodels.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(resourceType, id)
}

// UpdateResource replaces the resource at (resourceType, id), creating it
// when absent.
func (s *Server) UpdateResource(resourceType, id string, r fhirmodels.Resource) (*fhirmodels.Envelope, error) {
	if r == nil {
		return nil, fhir.ErrInvalid("", "resource is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.update(resourceType, id, r, "")
	if err != nil {
		return nil, err
	}
	return s.envelope(res), nil
}

// ConditionalUpdate updates the single resource matching query, e.g.
// "identifier=http://hospital.co.uk/crn|M123", or creates r when nothing
// matches.
func (s *Server) ConditionalUpdate(resourceType, query string, r fhirmodels.Resource) (*fhirmodels.Envelope, error) {
	if r == nil {
		return nil, fhir.ErrInvalid("", "resource is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.conditionalUpdate(resourceType, query, r)
	if err != nil {
		return nil, err
	}
	return s.envelope(res), nil
}

// DeleteResource removes the resource. Deleting an absent resource succeeds.
func (s *Server) DeleteResource(resourceType, id string) (*fhirmodels.Envelope, error) {
	if !fhir.IsResourceType(resourceType) {
		return nil, fhir.ErrInvalid("resourceType", "%q is not a resource type", resourceType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelope(s.delete(resourceType, id)), nil
}

// ConditionalDelete removes the single resource matching query.
func (s *Server) ConditionalDelete(resourceType, query string) (*fhirmodels.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.conditionalDelete(resourceType, query)
	if err != nil {
		return nil, err
	}
	return s.envelope(res), nil
}

// SearchResources evaluates params against every resource of the type.
func (s *Server) SearchResources(resourceType string, params url.Values) (*fhirmodels.Bundle, error) {
	if !fhir.IsResourceType(resourceType) {
		return nil, fhir.ErrInvalid("resourceType", "%q is not a resource type", resourceType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchBundle(resourceType, search.FromValues(params)), nil
}

func payloadType(r fhirmodels.Resource) (string, error) {
	if r == nil {
		return "", fhir.ErrInvalid("", "resource is required")
	}
	resourceType := r.ResourceType()
	if !fhir.IsResourceType(resourceType) {
		return "", fhir.ErrInvalid("resourceType", "resourceType %v is missing or invalid", r["resourceType"])
	}
	return resourceType, nil
}
