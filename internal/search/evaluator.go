package search

import (
	"fmt"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// Evaluator matches resources against parsed queries. Parameters that are
// not registered, or that carry a modifier their type does not support, are
// ignored and reported back as unknown.
type Evaluator struct {
	defs map[string]Definition
}

// Result is the outcome of filtering a resource list.
type Result struct {
	Matches []fhirmodels.Resource
	// Unknown lists the query keys that were ignored, in query order.
	Unknown []string
}

// NewEvaluator returns an evaluator with the default parameter set.
func NewEvaluator() *Evaluator {
	return &Evaluator{defs: defaultDefinitions()}
}

// Register adds or replaces a search parameter.
func (e *Evaluator) Register(name string, def Definition) error {
	if name == "" {
		return fmt.Errorf("search parameter name is required")
	}
	if len(def.Paths) == 0 {
		return fmt.Errorf("search parameter %q has no paths", name)
	}
	e.defs[name] = def
	return nil
}

type criterion struct {
	param Param
	def   Definition
}

// plan resolves each query parameter to its definition.
func (e *Evaluator) plan(q Query) ([]criterion, []string) {
	var (
		crit    []criterion
		unknown []string
	)
	for _, p := range q.Params {
		def, ok := e.defs[p.Name]
		if !ok || !supportsModifier(def, p.Modifier) {
			unknown = append(unknown, p.Key())
			continue
		}
		if p.Modifier == fhir.ModifierMissing && !validMissing(p.Values) {
			unknown = append(unknown, p.Key())
			continue
		}
		crit = append(crit, criterion{param: p, def: def})
	}
	return crit, unknown
}

// Unknown returns the keys of q that the evaluator ignores.
func (e *Evaluator) Unknown(q Query) []string {
	_, unknown := e.plan(q)
	return unknown
}

// HasCriteria reports whether q carries at least one recognized criterion.
func (e *Evaluator) HasCriteria(q Query) bool {
	crit, _ := e.plan(q)
	return len(crit) > 0
}

// Match reports whether r satisfies every recognized criterion of q.
func (e *Evaluator) Match(r fhirmodels.Resource, q Query) bool {
	crit, _ := e.plan(q)
	return matchAll(r, crit)
}

// Filter returns the resources satisfying q, preserving input order.
func (e *Evaluator) Filter(resources []fhirmodels.Resource, q Query) Result {
	crit, unknown := e.plan(q)
	res := Result{Unknown: unknown}
	for _, r := range resources {
		if matchAll(r, crit) {
			res.Matches = append(res.Matches, r)
		}
	}
	return res
}

func matchAll(r fhirmodels.Resource, crit []criterion) bool {
	doc := map[string]any(r)
	for _, c := range crit {
		if !matchParam(c.def.values(doc), c.def, c.param) {
			return false
		}
	}
	return true
}

// matchParam applies the OR over the parameter's values.
func matchParam(found []any, def Definition, p Param) bool {
	if p.Modifier == fhir.ModifierMissing {
		// validMissing guarantees a consistent true/false value set.
		return (p.Values[0] == "true") == (len(found) == 0)
	}

	hit := false
	for _, v := range p.Values {
		if matchValue(found, def, p.Modifier, v) {
			hit = true
			break
		}
	}
	if p.Modifier == fhir.ModifierNot {
		return !hit
	}
	return hit
}

func matchValue(found []any, def Definition, mod fhir.SearchModifier, value string) bool {
	for _, f := range found {
		var ok bool
		switch def.Type {
		case fhir.ParamTypeString:
			ok = matchString(f, value, mod)
		case fhir.ParamTypeToken:
			ok = matchToken(f, value, def)
		case fhir.ParamTypeReference:
			ok = matchReference(f, value, mod)
		case fhir.ParamTypeDate:
			ok = matchDate(f, value)
		case fhir.ParamTypeURI:
			s, isStr := f.(string)
			ok = isStr && s == value
		}
		if ok {
			return true
		}
	}
	return false
}

func supportsModifier(def Definition, mod fhir.SearchModifier) bool {
	switch mod {
	case "", fhir.ModifierMissing:
		return true
	case fhir.ModifierExact, fhir.ModifierContains:
		return def.Type == fhir.ParamTypeString
	case fhir.ModifierNot:
		return def.Type == fhir.ParamTypeToken
	default:
		// Type modifier on references, e.g. subject:Patient=123.
		return def.Type == fhir.ParamTypeReference && fhir.IsResourceType(string(mod))
	}
}

func validMissing(values []string) bool {
	for _, v := range values {
		if v != values[0] || (v != "true" && v != "false") {
			return false
		}
	}
	return len(values) > 0
}
