// Package draftid classifies draft identifiers. A draft id moves through
// three states over its life: unsaved (empty or the "new" sentinel), a
// client-generated placeholder ("draft-<timestamp>-<random>"), and finally
// the 24-hex identifier assigned by the upstream quote service. The
// transition is one-way; callers must never move an id backwards.
package draftid

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// SaveMethod is the HTTP verb the sync adapter should use for a save.
type SaveMethod string

const (
	// MethodCreate means the draft has never been persisted upstream.
	MethodCreate SaveMethod = http.MethodPost
	// MethodUpdate means the draft already has an upstream identity.
	MethodUpdate SaveMethod = http.MethodPut
)

const (
	// NewSentinel is the literal id value the wizard uses for unsaved drafts.
	NewSentinel = "new"
	// PlaceholderPrefix marks client-generated placeholder ids.
	PlaceholderPrefix = "draft-"
	// tempPrefix marks ids that were never backend-generated.
	tempPrefix = "temp-"
)

var remoteIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// ResolveSaveMethod classifies a candidate identifier into the HTTP verb to
// use. It returns MethodCreate when the id is empty after trimming or is
// exactly the "new" sentinel, and MethodUpdate otherwise. The function is
// total: it never fails, and any garbage value that is not clearly
// persisted-looking still resolves to one of the two methods.
func ResolveSaveMethod(id string) SaveMethod {
	if strings.TrimSpace(id) == "" || id == NewSentinel {
		return MethodCreate
	}
	return MethodUpdate
}

// IsBackendGeneratedID reports whether the id looks like it came from a
// backend rather than a local temp value. This is a UI affordance gate
// (e.g., whether "refresh from server" is offered), not a security or
// consistency boundary.
func IsBackendGeneratedID(id string) bool {
	return id != "" && !strings.HasPrefix(id, tempPrefix)
}

// IsRemoteID reports whether the id is a server-assigned upstream identifier
// (24 lowercase hex characters).
func IsRemoteID(id string) bool {
	return remoteIDPattern.MatchString(id)
}

// IsPlaceholderID reports whether the id is a client-generated placeholder.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// NewPlaceholderID generates a placeholder id for a draft that has not yet
// been saved upstream.
func NewPlaceholderID() string {
	return fmt.Sprintf("%s%d-%06d", PlaceholderPrefix, time.Now().UnixMilli(), rand.IntN(1000000))
}

// CanTransition reports whether moving a draft's id from current to next
// respects the one-way unsaved → placeholder → server-assigned progression.
func CanTransition(current, next string) bool {
	switch {
	case IsRemoteID(next):
		// A server id may replace anything except a different server id.
		return !IsRemoteID(current) || current == next
	case IsPlaceholderID(next):
		return strings.TrimSpace(current) == "" || current == NewSentinel || current == next
	default:
		return false
	}
}
