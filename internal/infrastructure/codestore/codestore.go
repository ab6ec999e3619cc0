// Package codestore holds one-time verification codes keyed by contact.
//
// Two implementations share the Store contract: an in-memory map for the
// single-process paths and a JSON file shared between the web process and the
// standalone bot process, which cannot see each other's memory.
package codestore

import (
	"time"

	"github.com/wazir-realty/api/internal/domain"
)

// Store is the one-time code contract. At most one live code exists per
// contact: Issue overwrites any prior entry. Validate is single-use — it
// removes the entry on a match and leaves it in place on a mismatch.
type Store interface {
	// Issue generates a fresh code for the contact and stores it. The code is
	// returned even when storage fails so the caller can fall back to showing
	// it directly; the error then wraps domain.ErrStorageUnavailable.
	Issue(contact string, ownerID *int64) (string, error)

	// Get returns the live entry for the contact, or false. Expired entries
	// are removed on detection and reported as absent.
	Get(contact string) (*domain.VerificationCode, bool)

	// Put stores an externally generated entry, overwriting any prior one.
	Put(vc domain.VerificationCode) error

	// Validate consumes the contact's code on a match. A mismatch or absence
	// returns false without removing anything.
	Validate(contact, code string) bool

	// Sweep removes entries issued more than the TTL ago and returns how many
	// were dropped.
	Sweep(now time.Time) int
}
