package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "hiscore/event/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content address of an event.
// The ID field itself is excluded, so EventID(e) is stable whether or not e.ID is set.
func EventID(e Event) (string, error) {
	canonical, err := MarshalCanonical(e.canonicalObject())
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(e Event) string {
	id, err := EventID(e)
	if err != nil {
		panic(err)
	}
	return id
}

// WithID returns e with its content address filled in.
func (e Event) WithID() (Event, error) {
	id, err := EventID(e)
	if err != nil {
		return e, err
	}
	e.ID = id
	return e, nil
}
