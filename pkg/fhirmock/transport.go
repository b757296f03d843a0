package fhirmock

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// Transport is an http.RoundTripper that answers requests under the
// server's base URL in-process, through the same echo instance as Handler.
// Other requests go to Fallback, or fail when it is nil.
type Transport struct {
	Server   *Server
	Fallback http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.Server.owns(req) {
		if t.Fallback == nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, fmt.Errorf("fhirmock: no route to %s outside %s", req.URL, t.Server.baseURL)
		}
		return t.Fallback.RoundTrip(req)
	}

	// Middleware may swap the body, so serve a copy of the request.
	in := req.Clone(req.Context())
	if in.Body == nil {
		in.Body = http.NoBody
	}
	rec := httptest.NewRecorder()
	t.Server.echo.ServeHTTP(rec, in)
	if req.Body != nil {
		_ = req.Body.Close()
	}

	resp := rec.Result()
	resp.ContentLength = int64(rec.Body.Len())
	resp.Request = req
	return resp, nil
}

// Client returns an http.Client whose requests under the base URL are served
// by s. Requests elsewhere fail.
func (s *Server) Client() *http.Client {
	return &http.Client{Transport: &Transport{Server: s}}
}

// owns reports whether req targets this server.
func (s *Server) owns(req *http.Request) bool {
	u := req.URL
	if !strings.EqualFold(u.Scheme, s.base.Scheme) || !strings.EqualFold(u.Host, s.base.Host) {
		return false
	}
	_, ok := trimBasePath(u.Path, s.basePath())
	return ok
}
