package fhir

import (
	"encoding/json"
	"testing"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

func TestNewCapabilityStatement(t *testing.T) {
	params := []fhirmodels.CSSearchParam{{Name: "identifier", Type: ParamTypeToken}}
	common := []fhirmodels.CSSearchParam{{Name: "_count", Type: "number"}}
	cs := NewCapabilityStatement(testBase, []fhirmodels.CSResource{
		ResourceCapability("Patient", params),
	}, common)

	if cs.ResourceType != "CapabilityStatement" {
		t.Errorf("expected CapabilityStatement, got %s", cs.ResourceType)
	}
	if cs.FHIRVersion != "4.0.1" {
		t.Errorf("expected fhirVersion 4.0.1, got %s", cs.FHIRVersion)
	}
	if cs.Kind != "instance" || cs.Status != "active" {
		t.Errorf("unexpected kind/status %s/%s", cs.Kind, cs.Status)
	}
	if cs.Implementation == nil || cs.Implementation.URL != testBase {
		t.Errorf("expected implementation url %s, got %+v", testBase, cs.Implementation)
	}
	if len(cs.Rest) != 1 || cs.Rest[0].Mode != "server" {
		t.Fatalf("expected one server rest entry, got %+v", cs.Rest)
	}
	if len(cs.Rest[0].SearchParam) != 1 || cs.Rest[0].SearchParam[0].Name != "_count" {
		t.Errorf("unexpected common search params %+v", cs.Rest[0].SearchParam)
	}
}

func TestResourceCapability(t *testing.T) {
	rc := ResourceCapability("Observation", nil)

	if rc.Type != "Observation" {
		t.Errorf("expected type Observation, got %s", rc.Type)
	}
	codes := map[string]bool{}
	for _, i := range rc.Interaction {
		codes[i.Code] = true
	}
	for _, want := range []string{"read", "search-type", "create", "update", "delete"} {
		if !codes[want] {
			t.Errorf("expected interaction %s", want)
		}
	}
	if !rc.ConditionalCreate || !rc.ConditionalUpdate || rc.ConditionalDelete != "single" {
		t.Errorf("expected conditional interactions to be advertised, got %+v", rc)
	}
}

func TestCapabilityStatement_JSON(t *testing.T) {
	cs := NewCapabilityStatement(testBase, []fhirmodels.CSResource{ResourceCapability("Patient", nil)}, nil)
	data, err := json.Marshal(cs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rest := m["rest"].([]any)[0].(map[string]any)
	if _, ok := rest["searchParam"]; ok {
		t.Error("expected empty searchParam to be omitted")
	}
	res := rest["resource"].([]any)[0].(map[string]any)
	if res["versioning"] != "versioned-update" {
		t.Errorf("expected versioned-update, got %v", res["versioning"])
	}
}
