// Package search parses FHIR search query strings and evaluates them
// against stored resources.
package search

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ehr/fhirmock/internal/platform/fhir"
)

// MaxCount is the hard ceiling on _count.
const MaxCount = 1000

// Unbounded marks a query without a usable _count.
const Unbounded = -1

// Result parameters that control the shape of the response rather than
// which resources match. They are accepted and ignored.
var ignoredResultParams = map[string]bool{
	"_format":   true,
	"_pretty":   true,
	"_summary":  true,
	"_elements": true,
	"_sort":     true,
	"_total":    true,
}

// Param is one search criterion: repeated occurrences of the same
// name:modifier are OR'd together.
type Param struct {
	Name     string
	Modifier fhir.SearchModifier
	Values   []string
}

// Key returns the parameter as written in the query, e.g. "name:exact".
func (p Param) Key() string {
	if p.Modifier == "" {
		return p.Name
	}
	return p.Name + ":" + string(p.Modifier)
}

// Query is a parsed search. Params are AND'd together.
type Query struct {
	Params []Param
	// Count is the requested page size, or Unbounded.
	Count  int
	Offset int

	pairs []string
}

// ParseQuery parses a raw query string such as
// "identifier=http://hospital.co.uk/crn|M123&name=Smith". A leading '?' is
// allowed. Keys and values are URL-decoded; pairs without '=' are ignored.
func ParseQuery(raw string) Query {
	q := Query{Count: Unbounded}
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return q
	}
	for _, pair := range strings.Split(raw, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		q.add(decode(k), decode(v), pair)
	}
	return q
}

// FromValues builds a Query from already-decoded values. Keys are visited
// in sorted order so the result is deterministic.
func FromValues(values url.Values) Query {
	q := Query{Count: Unbounded}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range values[k] {
			q.add(k, v, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return q
}

func (q *Query) add(key, value, rawPair string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	switch key {
	case "_count":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			q.Count = min(n, MaxCount)
		}
		return
	case "_offset":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			q.Offset = n
		}
		return
	}
	q.pairs = append(q.pairs, rawPair)
	if ignoredResultParams[key] {
		return
	}

	name, mod := fhir.ParseParamModifier(key)
	for i := range q.Params {
		if q.Params[i].Name == name && q.Params[i].Modifier == mod {
			q.Params[i].Values = append(q.Params[i].Values, value)
			return
		}
	}
	q.Params = append(q.Params, Param{Name: name, Modifier: mod, Values: []string{value}})
}

// Encode returns the query without _count and _offset, as used in bundle
// links.
func (q Query) Encode() string {
	return strings.Join(q.pairs, "&")
}

// IsEmpty reports whether the query has no criteria.
func (q Query) IsEmpty() bool {
	return len(q.Params) == 0
}

func decode(s string) string {
	d, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return d
}
