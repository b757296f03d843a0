package fhir

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ParseETag extracts the version from an ETag value like W/"3" or "3".
func ParseETag(etag string) (string, error) {
	etag = strings.TrimSpace(etag)
	// Remove weak indicator
	etag = strings.TrimPrefix(etag, "W/")
	// Remove quotes
	etag = strings.Trim(etag, `"`)

	if _, err := strconv.Atoi(etag); err != nil {
		return "", fmt.Errorf("ETag must contain a numeric version: %s", etag)
	}
	return etag, nil
}

// FormatETag creates a weak ETag from a version ID.
func FormatETag(versionID string) string {
	return fmt.Sprintf(`W/"%s"`, versionID)
}

// CheckIfMatch validates an If-Match header value against the current
// version. An empty header always passes.
func CheckIfMatch(ifMatch, currentVersion string) error {
	if ifMatch == "" {
		return nil
	}
	expected, err := ParseETag(ifMatch)
	if err != nil {
		return ErrInvalid("", "invalid If-Match header: %v", err)
	}
	if expected != currentVersion {
		return ErrConflict("version conflict: expected version %s but resource is at version %s",
			expected, currentVersion)
	}
	return nil
}

// SetVersionHeaders sets ETag and Last-Modified on h. lastUpdated is the
// RFC 3339 meta.lastUpdated value; unparseable values are skipped.
func SetVersionHeaders(h http.Header, versionID, lastUpdated string) {
	if versionID != "" {
		h.Set("ETag", FormatETag(versionID))
	}
	if t, err := parseFlexDate(lastUpdated); err == nil {
		h.Set("Last-Modified", t.UTC().Format(http.TimeFormat))
	}
}
