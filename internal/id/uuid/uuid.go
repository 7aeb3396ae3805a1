// Package uuid generates job identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// ShortLength is the number of characters in a short job id.
const ShortLength = 8

// Generator issues short job ids cut from a random (v4) UUID.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns the first ShortLength hex characters of a UUIDv4.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid4: %w", err)
	}
	return id.String()[:ShortLength], nil
}

// NewLongID returns a full UUIDv7 string, used for upload object names.
func (Generator) NewLongID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
