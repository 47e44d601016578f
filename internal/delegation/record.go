package delegation

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// State is the lifecycle position of an AuthRecord.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateRevoked State = "revoked"
)

// AuthRecord grants one account's scopes over another account.
//
// UserID is the managed side and is removed with that account. OwnerID is
// the managing side and is nulled when the manager account is deleted; an
// active record with a nil owner is treated as revoked by all queries.
type AuthRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	OwnerID   *int64    `json:"owner_id,omitempty"`
	Code      *string   `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	ScopeIDs  []int64   `json:"scope_ids"`
}

// State derives the lifecycle state from the code/active pair.
func (r *AuthRecord) State() State {
	switch {
	case r.Code != nil && *r.Code != "":
		return StatePending
	case r.Active:
		return StateActive
	default:
		return StateRevoked
	}
}

// Activate moves a Pending record to Active and reports whether anything
// changed. The code must be present: activating an already Active or
// Revoked record is a no-op, which blocks replay of a stale code.
func (r *AuthRecord) Activate() bool {
	if r.Code == nil || *r.Code == "" {
		return false
	}
	r.Code = nil
	r.Active = true
	return true
}

// Deactivate clears the code and the active flag from any state. Idempotent.
// A revoked record can never be re-activated; a fresh grant must be issued.
func (r *AuthRecord) Deactivate() {
	r.Code = nil
	r.Active = false
}

// NewActivationCode returns a fresh unguessable activation code: 256 bits of
// entropy, URL-safe encoding.
func NewActivationCode() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate activation code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
