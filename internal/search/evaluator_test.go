package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/fhirmock/internal/platform/fhir"
	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

func testPatient() fhirmodels.Resource {
	return fhirmodels.Resource{
		"resourceType": "Patient",
		"id":           "p1",
		"meta": map[string]any{
			"versionId":   "1",
			"lastUpdated": "2024-03-01T10:00:00.000000Z",
			"tag": []any{
				map[string]any{"system": "http://example.org/tags", "code": "mock"},
			},
			"profile": []any{"http://example.org/StructureDefinition/p"},
		},
		"identifier": []any{
			map[string]any{"system": "http://hospital.co.uk/crn", "value": "M123"},
			map[string]any{"system": "https://fhir.nhs.uk/Id/nhs-number", "value": "9000000009"},
		},
		"name": []any{
			map[string]any{"family": "Blöbby", "given": []any{"Kénneth", "Mr"}},
		},
		"status": "active",
	}
}

func testObservation() fhirmodels.Resource {
	return fhirmodels.Resource{
		"resourceType": "Observation",
		"id":           "o1",
		"status":       "final",
		"subject":      map[string]any{"reference": "Patient/p1"},
		"code": map[string]any{
			"coding": []any{
				map[string]any{"system": "http://loinc.org", "code": "8867-4"},
			},
		},
	}
}

func TestEvaluator_Match(t *testing.T) {
	e := NewEvaluator()
	tests := []struct {
		name     string
		resource fhirmodels.Resource
		query    string
		want     bool
	}{
		{"empty query", testPatient(), "", true},
		{"identifier system and value", testPatient(), "identifier=http://hospital.co.uk/crn|M123", true},
		{"identifier value only", testPatient(), "identifier=M123", true},
		{"identifier empty system", testPatient(), "identifier=|9000000009", true},
		{"identifier system only", testPatient(), "identifier=http://hospital.co.uk/crn|", true},
		{"identifier wrong system", testPatient(), "identifier=http://other|M123", false},
		{"identifier value from other entry", testPatient(), "identifier=http://hospital.co.uk/crn|9000000009", false},
		{"name folds case and accents", testPatient(), "name=blobby", true},
		{"name matches given", testPatient(), "name=kenneth", true},
		{"name substring", testPatient(), "name=lob", true},
		{"name exact is case sensitive", testPatient(), "name:exact=blöbby", false},
		{"name exact", testPatient(), "name:exact=Blöbby", true},
		{"family", testPatient(), "family=BLOBBY", true},
		{"family does not match given", testPatient(), "family=kenneth", false},
		{"given", testPatient(), "given=mr", true},
		{"repeated values are ORed", testPatient(), "family=nobody&family=blobby", true},
		{"distinct params are ANDed", testPatient(), "family=blobby&given=nobody", false},
		{"status", testObservation(), "status=final", true},
		{"status empty system form", testObservation(), "status=|final", true},
		{"status mismatch", testObservation(), "status=amended", false},
		{"status not", testObservation(), "status:not=amended", true},
		{"status not matching", testObservation(), "status:not=final", false},
		{"subject full reference", testObservation(), "subject=Patient/p1", true},
		{"subject bare id", testObservation(), "subject=p1", true},
		{"subject absolute url", testObservation(), "subject=http://mock/fhir/Patient/p1", true},
		{"subject type modifier", testObservation(), "subject:Patient=p1", true},
		{"subject wrong type", testObservation(), "subject:Group=p1", false},
		{"patient reads subject", testObservation(), "patient=Patient/p1", true},
		{"code", testObservation(), "code=http://loinc.org|8867-4", true},
		{"code only", testObservation(), "code=8867-4", true},
		{"code wrong system", testObservation(), "code=http://snomed.info/sct|8867-4", false},
		{"_id", testPatient(), "_id=p1", true},
		{"_id mismatch", testPatient(), "_id=p2", false},
		{"missing true", testPatient(), "subject:missing=true", true},
		{"missing false", testObservation(), "subject:missing=false", true},
		{"missing false on absent", testPatient(), "subject:missing=false", false},
		{"lastUpdated same day", testPatient(), "_lastUpdated=2024-03-01", true},
		{"lastUpdated ge", testPatient(), "_lastUpdated=ge2024-03-01T10:00:00Z", true},
		{"lastUpdated lt", testPatient(), "_lastUpdated=lt2024-03-01", false},
		{"lastUpdated gt month", testPatient(), "_lastUpdated=gt2024-02", true},
		{"lastUpdated unparseable", testPatient(), "_lastUpdated=yesterday", false},
		{"tag", testPatient(), "_tag=http://example.org/tags|mock", true},
		{"profile", testPatient(), "_profile=http://example.org/StructureDefinition/p", true},
		{"unknown params are ignored", testPatient(), "colour=blue&family=blobby", true},
		{"result params are ignored", testPatient(), "_sort=name&_format=json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Match(tt.resource, ParseQuery(tt.query)); got != tt.want {
				t.Errorf("expected %v for %q, got %v", tt.want, tt.query, got)
			}
		})
	}
}

func TestEvaluator_Unknown(t *testing.T) {
	e := NewEvaluator()
	q := ParseQuery("colour=blue&name:fuzzy=x&status:exact=final&subject:missing=maybe&family=ok&_sort=name")
	want := []string{"colour", "name:fuzzy", "status:exact", "subject:missing"}
	if diff := cmp.Diff(want, e.Unknown(q)); diff != "" {
		t.Errorf("unknown mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluator_HasCriteria(t *testing.T) {
	e := NewEvaluator()
	if e.HasCriteria(ParseQuery("colour=blue&_count=3")) {
		t.Error("expected no recognized criteria")
	}
	if !e.HasCriteria(ParseQuery("colour=blue&status=final")) {
		t.Error("expected status to be recognized")
	}
}

func TestEvaluator_FilterKeepsOrder(t *testing.T) {
	e := NewEvaluator()
	resources := []fhirmodels.Resource{
		{"resourceType": "Observation", "id": "a", "status": "final"},
		{"resourceType": "Observation", "id": "b", "status": "amended"},
		{"resourceType": "Observation", "id": "c", "status": "final"},
	}
	res := e.Filter(resources, ParseQuery("status=final&bogus=1"))
	var ids []string
	for _, r := range res.Matches {
		ids = append(ids, r.ID())
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bogus"}, res.Unknown); diff != "" {
		t.Errorf("unknown mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluator_Register(t *testing.T) {
	e := NewEvaluator()
	def, err := NewDefinition(fhir.ParamTypeString, "$.address[*].city")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Register("address-city", def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := fhirmodels.Resource{
		"resourceType": "Patient",
		"address":      []any{map[string]any{"city": "Leeds"}},
	}
	if !e.Match(r, ParseQuery("address-city=leeds")) {
		t.Error("expected registered parameter to match")
	}
	if typ, ok := e.TypeOf("address-city"); !ok || typ != fhir.ParamTypeString {
		t.Errorf("expected string type, got %q (%v)", typ, ok)
	}
}

func TestNewDefinition_Errors(t *testing.T) {
	if _, err := NewDefinition("quantity", "$.value"); err == nil {
		t.Error("expected error for unsupported type")
	}
	if _, err := NewDefinition(fhir.ParamTypeString); err == nil {
		t.Error("expected error without paths")
	}
	if _, err := NewDefinition(fhir.ParamTypeString, "$[invalid"); err == nil {
		t.Error("expected error for bad path")
	}
	if err := NewEvaluator().Register("", Definition{}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestFold(t *testing.T) {
	if got := fold("Ångström"); got != "angstrom" {
		t.Errorf("expected angstrom, got %q", got)
	}
}
