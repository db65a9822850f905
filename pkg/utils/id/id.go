// Package id provides unique ID generation for casegen.
//
// IDs are ULIDs: lexicographically sortable, 26 characters, Crockford base32.
//
// Usage:
//
//	rid := id.NewULID()              // e.g., "01ARZ3NDEKTSV4RRFFQ69G5FAV"
//	coll := id.NewULIDWithPrefix("casegen_")
package id

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidULID is returned when a ULID string is invalid.
var ErrInvalidULID = errors.New("invalid ULID format")

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string
}

// ULIDGenerator generates monotonic ULIDs. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator creates a ULID generator backed by crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate creates a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

var defaultULID = NewULIDGenerator()

// NewULID generates a new ULID string.
func NewULID() string {
	return defaultULID.Generate()
}

// NewULIDWithPrefix returns prefix followed by a lower-cased ULID.
// The result is safe for use as a Milvus collection name.
func NewULIDWithPrefix(prefix string) string {
	return prefix + strings.ToLower(NewULID())
}

// ParseULID validates s and returns its timestamp.
func ParseULID(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, ErrInvalidULID
	}
	return ulid.Time(u.Time()), nil
}
