package search

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"

	"github.com/ehr/fhirmock/internal/platform/fhir"
)

// Definition describes how a search parameter reads a resource.
type Definition struct {
	// Type is one of the fhir.ParamType* constants.
	Type string
	// Paths are JSONPath expressions selecting the values to compare.
	Paths []jp.Expr
	// SystemKey and CodeKey name the members of token objects, e.g.
	// "system"/"value" for identifiers. Empty means "system"/"code".
	SystemKey string
	CodeKey   string
}

// NewDefinition parses the JSONPath expressions of a definition.
func NewDefinition(paramType string, expressions ...string) (Definition, error) {
	switch paramType {
	case fhir.ParamTypeString, fhir.ParamTypeToken, fhir.ParamTypeReference, fhir.ParamTypeDate, fhir.ParamTypeURI:
	default:
		return Definition{}, fmt.Errorf("unsupported search parameter type %q", paramType)
	}
	if len(expressions) == 0 {
		return Definition{}, fmt.Errorf("search parameter needs at least one path")
	}
	def := Definition{Type: paramType}
	for _, e := range expressions {
		x, err := jp.ParseString(e)
		if err != nil {
			return Definition{}, fmt.Errorf("parse path %q: %w", e, err)
		}
		def.Paths = append(def.Paths, x)
	}
	return def, nil
}

// WithTokenKeys returns a copy of d reading token objects through the given
// member names.
func (d Definition) WithTokenKeys(systemKey, codeKey string) Definition {
	d.SystemKey = systemKey
	d.CodeKey = codeKey
	return d
}

// values collects every non-nil value the paths select.
func (d Definition) values(doc map[string]any) []any {
	var out []any
	for _, p := range d.Paths {
		for _, v := range p.Get(doc) {
			if v != nil {
				out = append(out, v)
			}
		}
	}
	return out
}

func mustDefinition(paramType string, expressions ...string) Definition {
	d, err := NewDefinition(paramType, expressions...)
	if err != nil {
		panic(err)
	}
	return d
}

// defaultDefinitions are the parameters every resource type supports.
func defaultDefinitions() map[string]Definition {
	return map[string]Definition{
		"identifier": mustDefinition(fhir.ParamTypeToken, "$.identifier[*]").WithTokenKeys("system", "value"),
		"name": mustDefinition(fhir.ParamTypeString,
			"$.name", "$.name[*].family", "$.name[*].given[*]", "$.name[*].text"),
		"family":       mustDefinition(fhir.ParamTypeString, "$.name[*].family"),
		"given":        mustDefinition(fhir.ParamTypeString, "$.name[*].given[*]"),
		"status":       mustDefinition(fhir.ParamTypeToken, "$.status"),
		"subject":      mustDefinition(fhir.ParamTypeReference, "$.subject.reference"),
		"patient":      mustDefinition(fhir.ParamTypeReference, "$.patient.reference", "$.subject.reference"),
		"code":         mustDefinition(fhir.ParamTypeToken, "$.code.coding[*]"),
		"_id":          mustDefinition(fhir.ParamTypeToken, "$.id"),
		"_lastUpdated": mustDefinition(fhir.ParamTypeDate, "$.meta.lastUpdated"),
		"_tag":         mustDefinition(fhir.ParamTypeToken, "$.meta.tag[*]"),
		"_profile":     mustDefinition(fhir.ParamTypeURI, "$.meta.profile[*]"),
	}
}

// Names returns the registered parameter names, sorted.
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.defs))
	for n := range e.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TypeOf returns the type of a registered parameter.
func (e *Evaluator) TypeOf(name string) (string, bool) {
	d, ok := e.defs[name]
	return d.Type, ok
}
