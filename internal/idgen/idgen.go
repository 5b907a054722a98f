// Package idgen generates short, URL-safe identifiers for requests and
// dataset snapshots.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each kind of identifier.
const (
	RequestPrefix  = "req-"
	SnapshotPrefix = "snap-"
)

// alphabet excludes look-alike characters so IDs survive being read aloud
// from a log line.
const alphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Length is the number of random characters after the prefix.
const Length = 12

// Request returns a new request ID.
func Request() string {
	return mustGenerate(RequestPrefix)
}

// Snapshot returns a new dataset snapshot ID.
func Snapshot() string {
	return mustGenerate(SnapshotPrefix)
}

// WithPrefix returns a new ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// mustGenerate only fails if the system random source fails, in which case
// there is nothing sensible left to do.
func mustGenerate(prefix string) string {
	id, err := WithPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return id
}
