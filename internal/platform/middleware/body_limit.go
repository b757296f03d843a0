package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirmock/internal/platform/fhir"
)

// DefaultBodyLimit is used when a limit string is empty or unparsable.
const DefaultBodyLimit int64 = 1 << 20

// BodyLimit returns middleware that caps the request body size. The limit
// is a human-readable string: "512K", "1M", "2G", or a bare byte count.
//
// Oversized requests fail with 413 and a too-costly OperationOutcome,
// either up front from Content-Length or while the handler reads the body.
func BodyLimit(limit string) echo.MiddlewareFunc {
	max := ParseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > max {
				return ErrBodyTooLarge(max)
			}

			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: max, limit: max}
			return next(c)
		}
	}
}

// ErrBodyTooLarge is the error returned for bodies over limit bytes.
func ErrBodyTooLarge(limit int64) *fhir.OutcomeError {
	return &fhir.OutcomeError{
		Status: http.StatusRequestEntityTooLarge,
		Outcome: fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTooCostly,
			fmt.Sprintf("Request body exceeds maximum allowed size of %d bytes", limit)),
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	limit     int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.exceeded {
		return 0, ErrBodyTooLarge(r.limit)
	}

	// Read one byte past the limit to detect overflow.
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}

	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		r.exceeded = true
		return 0, ErrBodyTooLarge(r.limit)
	}
	return n, err
}

// ParseLimit parses a size such as "1M", "512KB" or "10G" into bytes.
func ParseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultBodyLimit
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "G") || strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		s = strings.TrimRight(s, "GB")
	case strings.HasSuffix(s, "M") || strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		s = strings.TrimRight(s, "MB")
	case strings.HasSuffix(s, "K") || strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		s = strings.TrimRight(s, "KB")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return DefaultBodyLimit
	}
	return n * multiplier
}
