package store

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator produces logical ids for resources created without one.
type IDGenerator func() string

// NewID returns a random UUID v4.
func NewID() string {
	return uuid.NewString()
}

// NextVersion returns the version that follows current. An empty current
// yields "1".
func NextVersion(current string) (string, error) {
	if current == "" {
		return "1", nil
	}
	n, err := strconv.Atoi(current)
	if err != nil || n < 1 {
		return "", fmt.Errorf("stored versionId %q is not a positive integer", current)
	}
	return strconv.Itoa(n + 1), nil
}

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ... for
// deterministic tests.
func SequentialIDs(prefix string) IDGenerator {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
