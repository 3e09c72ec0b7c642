// Package rand generates identifiers for elements created without a
// client-supplied id.
package rand

import (
	"math/rand"
	"strconv"

	"github.com/backset/backset"
)

var _ backset.IDGenerator = (*IDGenerator)(nil)

// IDGenerator renders a random 64-bit integer as a decimal string.
// Generated ids are not re-checked for collisions; a near-certainly
// unique random 64-bit value is assumed sufficient.
type IDGenerator struct{}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

func (g *IDGenerator) ID() string {
	return strconv.FormatUint(rand.Uint64(), 10)
}
