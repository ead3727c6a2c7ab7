// Package uuid generates batch identifiers.
package uuid

import (
	"fmt"

	guuid "github.com/google/uuid"

	"github.com/refbundle/refbundle/internal/refs"
)

// Generator issues time-ordered UUIDv7 identifiers for batches.
type Generator struct{}

var _ refs.IDGenerator = Generator{}

// New returns a Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a fresh identifier. UUIDv7 keeps identifiers sortable by
// creation time.
func (Generator) NewID() (string, error) {
	id, err := guuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}
