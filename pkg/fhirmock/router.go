package fhirmock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// Response is the recorded result of an interaction. Body holds the JSON of
// a resource, a Bundle, an Envelope, a CapabilityStatement or an
// OperationOutcome.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into v, which is usually a map or one of the
// fhirmodels types.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("response has no body")
	}
	return json.Unmarshal(r.Body, v)
}

// Resource decodes the body as a free-form resource. Numbers are kept as
// json.Number.
func (r *Response) Resource() (fhirmodels.Resource, error) {
	var res fhirmodels.Resource
	if err := fhir.UnmarshalJSON(r.Body, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// routes registers the FHIR interactions on g, the group at the base path.
func (s *Server) routes(g *echo.Group) {
	g.GET("/metadata", s.handleMetadata)

	g.GET("/:type", s.handleSearch)
	g.POST("/:type", s.handleCreate)
	g.PUT("/:type", s.handleConditionalUpdate)
	g.DELETE("/:type", s.handleConditionalDelete)

	g.GET("/:type/:id", s.handleRead)
	g.PUT("/:type/:id", s.handleUpdate)
	g.DELETE("/:type/:id", s.handleDelete)
}

// HandleRequest serves one HTTP-shaped interaction in-process. rawURL is
// either absolute, in which case it must fall under the base URL, or a path
// such as "/fhir/Patient?name=x" or "Patient/123". Failures are returned as
// responses carrying an OperationOutcome, never as errors.
func (s *Server) HandleRequest(method, rawURL string, header http.Header, body []byte) *Response {
	target, err := s.requestTarget(rawURL)
	if err != nil {
		return errorResponse(err)
	}
	req, err := http.NewRequest(strings.ToUpper(method), target, bytes.NewReader(body))
	if err != nil {
		return errorResponse(fhir.ErrInvalid("", "cannot build request: %v", err))
	}
	req.Host = s.base.Host
	if header != nil {
		req.Header = header.Clone()
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return &Response{
		Status: rec.Code,
		Header: rec.Header().Clone(),
		Body:   rec.Body.Bytes(),
	}
}

// requestTarget maps rawURL onto a request URI under the base path. Bare
// paths that do not start with the base path are taken as relative to it.
func (s *Server) requestTarget(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fhir.ErrUnrouted("cannot parse URL %q", rawURL)
	}
	basePath := s.basePath()
	path := u.EscapedPath()

	if u.Scheme != "" || u.Host != "" {
		if !strings.EqualFold(u.Scheme, s.base.Scheme) || !strings.EqualFold(u.Host, s.base.Host) {
			return "", fhir.ErrUnrouted("URL %s is outside the server base %s", rawURL, s.baseURL)
		}
		if _, ok := trimBasePath(path, basePath); !ok {
			return "", fhir.ErrUnrouted("URL %s is outside the server base %s", rawURL, s.baseURL)
		}
	} else {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if _, ok := trimBasePath(path, basePath); !ok {
			path = basePath + path
		}
	}

	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, nil
}

func (s *Server) basePath() string {
	return strings.TrimRight(s.base.Path, "/")
}

func trimBasePath(path, basePath string) (string, bool) {
	if basePath == "" {
		return path, true
	}
	if path == basePath || strings.HasPrefix(path, basePath+"/") {
		return strings.TrimPrefix(path, basePath), true
	}
	return "", false
}

// typeParam returns the :type path parameter, which must name a resource
// type. /metadata only answers GET.
func typeParam(c echo.Context) (string, error) {
	t := c.Param("type")
	if t == "metadata" && c.Param("id") == "" {
		return "", fhir.ErrMethodNotAllowed(c.Request().Method)
	}
	if !fhir.IsResourceType(t) {
		return "", unrouted(c)
	}
	return t, nil
}

// idParam returns the :id path parameter. The last route parameter takes
// the rest of the path, so ids spanning further segments are unrouted.
func idParam(c echo.Context) (string, error) {
	id := c.Param("id")
	if id == "" || strings.Contains(id, "/") {
		return "", unrouted(c)
	}
	return id, nil
}

func unrouted(c echo.Context) *fhir.OutcomeError {
	req := c.Request()
	return fhir.ErrUnrouted("no route for %s %s", req.Method, req.URL.Path)
}

// errorResponse renders err for callers of HandleRequest whose request
// never reached the router.
func errorResponse(err error) *Response {
	oe := fhir.AsOutcomeError(err)
	h := http.Header{}
	h.Set(echo.HeaderContentType, fhir.ContentTypeFHIRJSON)
	data, _ := json.Marshal(oe.Outcome)
	return &Response{Status: oe.StatusCode(), Header: h, Body: data}
}
