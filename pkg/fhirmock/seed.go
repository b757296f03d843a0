package fhirmock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// Seed loading errors.
var (
	ErrEmptySeed   = errors.New("seed data is empty")
	ErrInvalidSeed = errors.New("invalid seed data")
)

// ParseSeed reads resources from JSON or YAML. The document may be a single
// resource, a list of resources, or a Bundle whose entries carry resources.
func ParseSeed(data []byte) ([]fhirmodels.Resource, error) {
	if len(data) == 0 {
		return nil, ErrEmptySeed
	}

	var doc any
	if json.Valid(data) {
		if err := fhir.UnmarshalJSON(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
	} else {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		// Round-trip through JSON so values have the same types as
		// resources received over HTTP.
		b, err := json.Marshal(normalizeYAML(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		if err := fhir.UnmarshalJSON(b, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
	}
	if doc == nil {
		return nil, ErrEmptySeed
	}

	var out []fhirmodels.Resource
	if err := collectSeed(doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectSeed(doc any, out *[]fhirmodels.Resource) error {
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			if err := collectSeed(item, out); err != nil {
				return err
			}
		}
	case map[string]any:
		r := fhirmodels.Resource(v)
		if r.ResourceType() != "Bundle" {
			if !fhir.IsResourceType(r.ResourceType()) {
				return fmt.Errorf("%w: resourceType %v is missing or invalid", ErrInvalidSeed, v["resourceType"])
			}
			*out = append(*out, r)
			return nil
		}
		entries, _ := v["entry"].([]any)
		for i, e := range entries {
			entry, _ := e.(map[string]any)
			res, ok := entry["resource"]
			if !ok {
				return fmt.Errorf("%w: bundle entry %d has no resource", ErrInvalidSeed, i)
			}
			if err := collectSeed(res, out); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: expected a resource, list or Bundle, got %T", ErrInvalidSeed, doc)
	}
	return nil
}

// normalizeYAML converts map[any]any nodes, which JSON cannot encode, into
// map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

// ReadSeedFile parses a seed file from disk.
func ReadSeedFile(path string) ([]fhirmodels.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	resources, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resources, nil
}

// CountByType tallies resources per resourceType, returning the types in
// sorted order alongside the counts.
func CountByType(resources []fhirmodels.Resource) ([]string, map[string]int) {
	counts := make(map[string]int)
	for _, r := range resources {
		counts[r.ResourceType()]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	return types, counts
}

// Load seeds the store from r. Resources with an id are upserted under that
// id; the rest get a generated one. It returns how many resources were
// stored. Nothing is stored if the document does not parse.
func (s *Server) Load(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	resources, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, res := range resources {
		var err error
		if id := res.ID(); id != "" {
			_, err = s.update(res.ResourceType(), id, res, "")
		} else {
			_, err = s.create(res.ResourceType(), res, "")
		}
		if err != nil {
			return i, fmt.Errorf("seed resource %d (%s): %w", i, res.ResourceType(), err)
		}
	}
	s.logger.Info().Int("resources", len(resources)).Msg("seed loaded")
	return len(resources), nil
}

// LoadFile seeds the store from a JSON or YAML file.
func (s *Server) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return s.Load(f)
}
