// Package actor validates the operator identity that every mutating engine
// call receives explicitly.
package actor

import (
	"errors"
	"strings"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// System is the actor recorded for background jobs.
const System = "system"

// Require returns the trimmed actor id or ErrUnauthenticated when it is blank.
func Require(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
