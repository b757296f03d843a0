package fhir

import (
	"errors"
	"net/http"
	"testing"
)

func TestParseETag(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{`W/"3"`, "3", false},
		{`"5"`, "5", false},
		{`W/"1"`, "1", false},
		{` W/"7" `, "7", false},
		{`"abc"`, "", true},
		{`W/""`, "", true},
		{`42`, "42", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseETag(tt.input)
			if tt.wantErr && err == nil {
				t.Errorf("ParseETag(%q) should have returned error", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ParseETag(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseETag(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseETagRoundTrip(t *testing.T) {
	for _, v := range []string{"1", "5", "42", "100"} {
		etag := FormatETag(v)
		parsed, err := ParseETag(etag)
		if err != nil {
			t.Errorf("round-trip failed for %s: %v", v, err)
		}
		if parsed != v {
			t.Errorf("round-trip for %s: got %s", v, parsed)
		}
	}
}

func TestCheckIfMatch(t *testing.T) {
	if err := CheckIfMatch("", "3"); err != nil {
		t.Errorf("expected empty If-Match to pass, got %v", err)
	}
	if err := CheckIfMatch(`W/"3"`, "3"); err != nil {
		t.Errorf("expected matching version to pass, got %v", err)
	}

	err := CheckIfMatch(`W/"2"`, "3")
	var oe *OutcomeError
	if !errors.As(err, &oe) || oe.StatusCode() != http.StatusConflict {
		t.Fatalf("expected 409 OutcomeError, got %v", err)
	}
	if oe.Code() != IssueTypeConflict {
		t.Errorf("expected conflict issue, got %s", oe.Code())
	}

	err = CheckIfMatch("nonsense", "3")
	if !errors.As(err, &oe) || oe.StatusCode() != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed If-Match, got %v", err)
	}
}

func TestSetVersionHeaders_WithLastModified(t *testing.T) {
	h := http.Header{}
	SetVersionHeaders(h, "5", "2024-01-15T10:30:00Z")

	if etag := h.Get("ETag"); etag != `W/"5"` {
		t.Errorf("expected ETag W/\"5\", got %q", etag)
	}
	if lm := h.Get("Last-Modified"); lm != "Mon, 15 Jan 2024 10:30:00 GMT" {
		t.Errorf("unexpected Last-Modified %q", lm)
	}
}

func TestSetVersionHeaders_SkipsBadTimestamp(t *testing.T) {
	h := http.Header{}
	SetVersionHeaders(h, "1", "yesterday")

	if h.Get("ETag") != `W/"1"` {
		t.Errorf("expected ETag to be set, got %q", h.Get("ETag"))
	}
	if h.Get("Last-Modified") != "" {
		t.Errorf("expected no Last-Modified, got %q", h.Get("Last-Modified"))
	}
}
