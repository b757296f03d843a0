package fhirmock

import (
	"fmt"
	"net/http"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/internal/search"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// writeResult is the outcome of a create, update or delete.
type writeResult struct {
	status   int
	resource fhirmodels.Resource
	created  bool
	message  string
}

// The methods below expect s.mu to be held.

func (s *Server) create(resourceType string, r fhirmodels.Resource, ifNoneExist string) (*writeResult, error) {
	if err := fhir.ValidateResourceType(r, resourceType); err != nil {
		return nil, err
	}

	if ifNoneExist != "" {
		matches := s.conditionalMatches(resourceType, ifNoneExist)
		action, err := fhir.ResolveConditional(fhir.InteractionCreate, len(matches))
		if err != nil {
			return nil, err
		}
		if action == fhir.ConditionalSingleMatch {
			existing := matches[0]
			s.logger.Debug().
				Str("resource_type", resourceType).
				Str("id", existing.ID()).
				Msg("conditional create matched existing resource")
			return &writeResult{
				status:   http.StatusOK,
				resource: existing,
				message:  fmt.Sprintf("Resource %s already exists, not created", existing.Reference()),
			}, nil
		}
	}

	id, ok := fhir.BodyID(r)
	if !ok || s.store.Exists(resourceType, id) {
		if v, present := r["id"]; present && !ok {
			s.logger.Debug().
				Str("resource_type", resourceType).
				Interface("body_id", v).
				Msg("ignoring malformed body id")
		}
		id = s.newID()
	}
	stored, err := s.store.Put(resourceType, id, r)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", resourceType, err)
	}

	s.logWrite("resource created", stored, http.StatusCreated)
	return &writeResult{
		status:   http.StatusCreated,
		resource: stored,
		created:  true,
		message:  fmt.Sprintf("Resource %s created successfully", stored.Reference()),
	}, nil
}

func (s *Server) read(resourceType, id string) (fhirmodels.Resource, error) {
	r, ok := s.store.Get(resourceType, id)
	if !ok {
		return nil, fhir.ErrNotFound(resourceType, id)
	}
	return r, nil
}

// update replaces or upserts the resource at (resourceType, id). A non-empty
// ifMatch must name the current version.
func (s *Server) update(resourceType, id string, r fhirmodels.Resource, ifMatch string) (*writeResult, error) {
	if !fhir.IsValidID(id) {
		return nil, fhir.ErrInvalid("id", "%q is not a valid FHIR id", id)
	}
	if err := fhir.ValidateResourceType(r, resourceType); err != nil {
		return nil, err
	}
	if err := fhir.ValidateBodyID(r); err != nil {
		return nil, err
	}
	if bodyID := r.ID(); bodyID != "" && bodyID != id {
		return nil, fhir.ErrInvalid("id", "resource id %q does not match the request id %q", bodyID, id)
	}

	current, exists := s.store.Get(resourceType, id)
	if ifMatch != "" {
		if !exists {
			return nil, fhir.ErrNotFound(resourceType, id)
		}
		if err := fhir.CheckIfMatch(ifMatch, current.VersionID()); err != nil {
			return nil, err
		}
	}

	stored, err := s.store.Put(resourceType, id, r)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", resourceType, id, err)
	}

	if exists {
		s.logWrite("resource updated", stored, http.StatusOK)
		return &writeResult{
			status:   http.StatusOK,
			resource: stored,
			message:  fmt.Sprintf("Resource %s updated successfully", stored.Reference()),
		}, nil
	}
	s.logWrite("resource created", stored, http.StatusCreated)
	return &writeResult{
		status:   http.StatusCreated,
		resource: stored,
		created:  true,
		message:  fmt.Sprintf("Resource %s created successfully", stored.Reference()),
	}, nil
}

// conditionalUpdate resolves rawQuery to at most one resource and updates
// it, or creates a new one when nothing matches.
func (s *Server) conditionalUpdate(resourceType, rawQuery string, r fhirmodels.Resource) (*writeResult, error) {
	if err := fhir.ValidateResourceType(r, resourceType); err != nil {
		return nil, err
	}

	matches := s.conditionalMatches(resourceType, rawQuery)
	action, err := fhir.ResolveConditional(fhir.InteractionUpdate, len(matches))
	if err != nil {
		return nil, err
	}

	if action == fhir.ConditionalSingleMatch {
		r = r.Clone()
		r["id"] = matches[0].ID()
		return s.update(resourceType, matches[0].ID(), r, "")
	}
	if id, ok := fhir.BodyID(r); ok {
		return s.update(resourceType, id, r, "")
	}
	return s.create(resourceType, r, "")
}

func (s *Server) delete(resourceType, id string) *writeResult {
	if !s.store.Delete(resourceType, id) {
		s.logger.Debug().
			Str("resource_type", resourceType).
			Str("id", id).
			Msg("delete of absent resource")
		return &writeResult{
			status:  http.StatusOK,
			message: fmt.Sprintf("Resource %s/%s did not exist, nothing deleted", resourceType, id),
		}
	}
	s.logger.Debug().
		Str("resource_type", resourceType).
		Str("id", id).
		Msg("resource deleted")
	return &writeResult{
		status:  http.StatusOK,
		message: fmt.Sprintf("Resource %s/%s deleted", resourceType, id),
	}
}

func (s *Server) conditionalDelete(resourceType, rawQuery string) (*writeResult, error) {
	matches := s.conditionalMatches(resourceType, rawQuery)
	action, err := fhir.ResolveConditional(fhir.InteractionDelete, len(matches))
	if err != nil {
		return nil, err
	}
	if action == fhir.ConditionalNoMatch {
		return &writeResult{
			status:  http.StatusOK,
			message: fmt.Sprintf("No %s matched the conditional delete criteria, nothing deleted", resourceType),
		}, nil
	}
	return s.delete(resourceType, matches[0].ID()), nil
}

// searchBundle evaluates q against every resource of the type and returns
// one page of matches.
func (s *Server) searchBundle(resourceType string, q search.Query) *fhirmodels.Bundle {
	res := s.evaluator.Filter(s.store.Iter(resourceType), q)
	s.logUnknown(resourceType, res.Unknown)

	total := len(res.Matches)
	count := q.Count
	if count > s.maxCount {
		count = s.maxCount
	}
	page := res.Matches
	if q.Offset >= total {
		page = nil
	} else {
		page = page[q.Offset:]
	}
	if count >= 0 && count < len(page) {
		page = page[:count]
	}

	params := fhir.SearchBundleParams{
		BaseURL:      s.baseURL,
		ResourceType: resourceType,
		QueryStr:     q.Encode(),
		Count:        count,
		Offset:       q.Offset,
		Total:        total,
	}
	if s.warnUnknown && len(res.Unknown) > 0 {
		params.Outcome = fhir.UnknownParamsOutcome(res.Unknown)
	}

	s.logger.Debug().
		Str("resource_type", resourceType).
		Int("total", total).
		Int("returned", len(page)).
		Msg("search")
	return fhir.NewSearchBundle(page, params)
}

// conditionalMatches resolves the criteria of a conditional interaction.
// Unsupported parameters are ignored; criteria left with no supported
// parameter match nothing.
func (s *Server) conditionalMatches(resourceType, rawQuery string) []fhirmodels.Resource {
	q := search.ParseQuery(rawQuery)
	if !s.evaluator.HasCriteria(q) {
		s.logUnknown(resourceType, s.evaluator.Unknown(q))
		return nil
	}
	return s.matches(resourceType, q)
}

func (s *Server) matches(resourceType string, q search.Query) []fhirmodels.Resource {
	res := s.evaluator.Filter(s.store.Iter(resourceType), q)
	s.logUnknown(resourceType, res.Unknown)
	return res.Matches
}

func (s *Server) logUnknown(resourceType string, unknown []string) {
	if len(unknown) == 0 {
		return
	}
	s.logger.Debug().
		Str("resource_type", resourceType).
		Strs("params", unknown).
		Msg("ignoring unsupported search parameters")
}

func (s *Server) logWrite(msg string, r fhirmodels.Resource, status int) {
	s.logger.Debug().
		Str("resource_type", r.ResourceType()).
		Str("id", r.ID()).
		Str("version_id", r.VersionID()).
		Int("status", status).
		Msg(msg)
}

// envelope wraps a write result in the OperationOutcome-shaped body returned
// by create, update and delete.
func (s *Server) envelope(res *writeResult) *fhirmodels.Envelope {
	env := &fhirmodels.Envelope{
		ResourceType: "OperationOutcome",
		Issue:        fhir.InformationOutcome(res.message).Issue,
		Created:      res.created,
	}
	if res.resource != nil {
		env.Location = fhir.FullURL(s.baseURL, res.resource.ResourceType(), res.resource.ID())
		env.CreatedResource = res.resource
	}
	return env
}

// historyURL is the versioned location of r, used for the Location header.
func (s *Server) historyURL(r fhirmodels.Resource) string {
	return fmt.Sprintf("%s/_history/%s", fhir.FullURL(s.baseURL, r.ResourceType(), r.ID()), r.VersionID())
}
