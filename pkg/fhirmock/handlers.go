package fhirmock

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/internal/search"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// POST /{type}
func (s *Server) handleCreate(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	r, err := readResource(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.create(resourceType, r, c.Request().Header.Get("If-None-Exist"))
	if err != nil {
		return err
	}
	return s.writeResult(c, res)
}

// GET /{type}/{id}
func (s *Server) handleRead(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.read(resourceType, id)
	if err != nil {
		return err
	}
	fhir.SetVersionHeaders(c.Response().Header(), r.VersionID(), r.LastUpdated())
	return reply(c, http.StatusOK, r)
}

// PUT /{type}/{id}
func (s *Server) handleUpdate(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	r, err := readResource(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.update(resourceType, id, r, c.Request().Header.Get("If-Match"))
	if err != nil {
		return err
	}
	return s.writeResult(c, res)
}

// PUT /{type}?<query>
func (s *Server) handleConditionalUpdate(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	rawQuery := c.Request().URL.RawQuery
	if rawQuery == "" {
		return fhir.ErrInvalid("", "PUT requests must include a resource id or search parameters")
	}
	r, err := readResource(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.conditionalUpdate(resourceType, rawQuery, r)
	if err != nil {
		return err
	}
	return s.writeResult(c, res)
}

// DELETE /{type}/{id}
func (s *Server) handleDelete(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeResult(c, s.delete(resourceType, id))
}

// DELETE /{type}?<query>
func (s *Server) handleConditionalDelete(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	rawQuery := c.Request().URL.RawQuery
	if rawQuery == "" {
		return fhir.ErrInvalid("", "DELETE requests must include a resource id or search parameters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.conditionalDelete(resourceType, rawQuery)
	if err != nil {
		return err
	}
	return s.writeResult(c, res)
}

// GET /{type}?<query>, and GET /{type} to browse.
func (s *Server) handleSearch(c echo.Context) error {
	resourceType, err := typeParam(c)
	if err != nil {
		return err
	}
	q := search.ParseQuery(c.Request().URL.RawQuery)

	s.mu.Lock()
	defer s.mu.Unlock()
	return reply(c, http.StatusOK, s.searchBundle(resourceType, q))
}

// GET /metadata
func (s *Server) handleMetadata(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var resources []fhirmodels.CSResource
	for _, t := range s.store.Types() {
		resources = append(resources, fhir.ResourceCapability(t, nil))
	}
	var params []fhirmodels.CSSearchParam
	for _, name := range s.evaluator.Names() {
		typ, _ := s.evaluator.TypeOf(name)
		params = append(params, fhirmodels.CSSearchParam{Name: name, Type: typ})
	}
	params = append(params,
		fhirmodels.CSSearchParam{Name: "_count", Type: "number"},
		fhirmodels.CSSearchParam{Name: "_offset", Type: "number"},
	)
	return reply(c, http.StatusOK, fhir.NewCapabilityStatement(s.baseURL, resources, params))
}

func (s *Server) writeResult(c echo.Context, res *writeResult) error {
	if r := res.resource; r != nil {
		h := c.Response().Header()
		h.Set(echo.HeaderLocation, s.historyURL(r))
		fhir.SetVersionHeaders(h, r.VersionID(), r.LastUpdated())
	}
	return reply(c, res.status, s.envelope(res))
}

// readResource reads and decodes the request body. A body over the size
// limit surfaces as the 413 raised by the body limit middleware.
func readResource(c echo.Context) (fhirmodels.Resource, error) {
	var body []byte
	if req := c.Request(); req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			var oe *fhir.OutcomeError
			if errors.As(err, &oe) {
				return nil, oe
			}
			return nil, fhir.ErrInvalid("", "cannot read request body: %v", err)
		}
	}
	return fhir.DecodeResource(body)
}
