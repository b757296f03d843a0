package fhirmock

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/internal/platform/middleware"
)

// newEcho builds the echo instance every interaction goes through, whether
// it arrives over the network, through HandleRequest or through Transport.
// Panics are recovered, requests are logged under a request id and bodies
// are capped at the configured limit.
func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recovery(s.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(s.logger))
	e.Use(middleware.BodyLimit(s.bodyLimit))

	s.routes(e.Group(s.basePath()))
	return e
}

// Echo returns the server's echo instance. Middleware added with Use also
// applies to HandleRequest and Transport.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the server as an http.Handler, for use with httptest or
// an http.Server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// reply writes body as FHIR JSON.
func reply(c echo.Context, status int, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.Blob(status, fhir.ContentTypeFHIRJSON, data)
}

// httpErrorHandler renders every error, including echo's own routing
// errors, as an OperationOutcome.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	req := c.Request()
	var oe *fhir.OutcomeError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &oe):
	case errors.As(err, &he) && he.Code == http.StatusNotFound:
		oe = fhir.ErrUnrouted("no route for %s %s", req.Method, req.URL.Path)
	case errors.As(err, &he) && he.Code == http.StatusMethodNotAllowed:
		oe = fhir.ErrMethodNotAllowed(req.Method)
	case errors.As(err, &he) && he.Code < http.StatusInternalServerError:
		oe = &fhir.OutcomeError{
			Status:  he.Code,
			Outcome: fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeProcessing, fmt.Sprint(he.Message)),
		}
	default:
		oe = fhir.AsOutcomeError(err)
	}

	if werr := reply(c, oe.StatusCode(), oe.Outcome); werr != nil {
		s.logger.Error().Err(werr).Msg("failed to write error response")
	}
}
