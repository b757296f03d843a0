// Package fhirmock is an in-process mock of a FHIR R4 REST server. Tests
// drive it directly through its Go API, over HTTP through Handler, or by
// pointing an http.Client at it with Transport.
package fhirmock

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirmock/internal/search"
	"github.com/ehr/fhirmock/internal/store"
)

// DefaultBaseURL is the root the server answers under unless WithBaseURL is
// given.
const DefaultBaseURL = "http://localhost:8080/fhir"

// Server is a mock FHIR server. Every entry point routes through one echo
// instance and all interactions are serialized, so each one, including
// check-then-act conditional ones, is atomic.
type Server struct {
	mu sync.Mutex

	baseURL string
	base    *url.URL

	store     *store.Store
	evaluator *search.Evaluator
	echo      *echo.Echo
	logger    zerolog.Logger
	clock     func() time.Time
	newID     store.IDGenerator

	maxCount    int
	warnUnknown bool
	bodyLimit   string
}

// Option configures a Server.
type Option func(*Server)

// WithBaseURL sets the root URL, e.g. "http://fhir.test/r4". A trailing
// slash is ignored.
func WithBaseURL(baseURL string) Option {
	return func(s *Server) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock sets the time source used for meta.lastUpdated.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithIDGenerator sets the generator for server-assigned ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) {
		s.newID = gen
	}
}

// WithMaxCount lowers the ceiling applied to _count.
func WithMaxCount(n int) Option {
	return func(s *Server) {
		if n > 0 && n <= search.MaxCount {
			s.maxCount = n
		}
	}
}

// WithUnknownParamWarnings appends an OperationOutcome entry to search
// bundles listing the parameters that were ignored.
func WithUnknownParamWarnings(enabled bool) Option {
	return func(s *Server) {
		s.warnUnknown = enabled
	}
}

// WithBodyLimit caps request bodies accepted over HTTP, e.g. "512K" or
// "2M". The default is 1M.
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		s.bodyLimit = limit
	}
}

// New creates an empty Server.
func New(opts ...Option) *Server {
	s := &Server{
		baseURL:   DefaultBaseURL,
		evaluator: search.NewEvaluator(),
		logger:    zerolog.Nop(),
		clock:     time.Now,
		newID:     store.NewID,
		maxCount:  search.MaxCount,
		bodyLimit: "1M",
	}
	for _, opt := range opts {
		opt(s)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		s.logger.Warn().Str("base_url", s.baseURL).Msg("invalid base URL, using default")
		s.baseURL = DefaultBaseURL
		u, _ = url.Parse(DefaultBaseURL)
	}
	s.base = u
	s.store = store.New(s.clock)
	s.echo = s.newEcho()
	return s
}

// BaseURL returns the configured root, without a trailing slash.
func (s *Server) BaseURL() string {
	return s.baseURL
}

// Reset drops every stored resource.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Reset()
	s.logger.Debug().Msg("store reset")
}

// RegisterSearchParameter adds a search parameter available on every
// resource type. paramType is one of string, token, reference, date or uri;
// expressions are JSONPath selectors such as "$.address[*].city". Token
// parameters compare plain strings, or the "system" and "code" members of
// objects.
func (s *Server) RegisterSearchParameter(name, paramType string, expressions ...string) error {
	def, err := search.NewDefinition(paramType, expressions...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluator.Register(name, def)
}
