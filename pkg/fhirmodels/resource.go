package fhirmodels

import (
	"encoding/json"
	"time"

	"github.com/ohler55/ojg/alt"
)

// Resource is a FHIR resource in its decoded JSON form. Only a handful of
// fields are interpreted by the server; everything else is carried as-is.
type Resource map[string]any

// ResourceType returns the resourceType discriminator, or "" when absent.
func (r Resource) ResourceType() string {
	s, _ := r["resourceType"].(string)
	return s
}

// ID returns the logical id, or "" when absent.
func (r Resource) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Meta returns the meta element, or nil when absent or not an object.
func (r Resource) Meta() map[string]any {
	m, _ := r["meta"].(map[string]any)
	return m
}

// VersionID returns meta.versionId.
func (r Resource) VersionID() string {
	s, _ := r.Meta()["versionId"].(string)
	return s
}

// LastUpdated returns meta.lastUpdated in its wire form.
func (r Resource) LastUpdated() string {
	s, _ := r.Meta()["lastUpdated"].(string)
	return s
}

// Reference returns "{resourceType}/{id}".
func (r Resource) Reference() string {
	return r.ResourceType() + "/" + r.ID()
}

// cloneOptions decompose typed Go values the way encoding/json would
// marshal them: json tags name the keys, nils are kept and times become
// RFC 3339 strings.
var cloneOptions = func() alt.Options {
	opt := alt.GoOptions
	opt.TimeFormat = time.RFC3339Nano
	return opt
}()

// Clone returns a deep copy in JSON-generic form. Objects become
// map[string]any and arrays []any whatever Go types r was built from, so a
// resource assembled from typed slices or structs can be searched like one
// decoded from JSON.
func (r Resource) Clone() Resource {
	if r == nil {
		return nil
	}
	return Resource(cloneMap(r))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies values that are already JSON-generic and hands anything
// else to alt.Decompose. json.Number is matched here because alt would turn
// it into a string.
func cloneValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64, int64, json.Number:
		return val
	case map[string]any:
		return cloneMap(val)
	case Resource:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return alt.Decompose(val, &cloneOptions)
	}
}
