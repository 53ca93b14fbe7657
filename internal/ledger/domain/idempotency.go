package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type IdempotencyScope string

const (
	ScopeClient  IdempotencyScope = "client"
	ScopeWebhook IdempotencyScope = "webhook"
	ScopeResolve IdempotencyScope = "resolve"
)

func IdempotencyKey(scope IdempotencyScope, reference string) string {
	return string(scope) + ":" + reference
}

// Outcome is the snapshot returned to duplicate callers.
type Outcome struct {
	TransactionReference string            `json:"transaction_reference,omitempty"`
	Status               TransactionStatus `json:"status,omitempty"`
	Fingerprint          string            `json:"fingerprint,omitempty"`
	Note                 string            `json:"note,omitempty"`
}

type IdempotencyRecord struct {
	Key       string           `json:"key"`
	Scope     IdempotencyScope `json:"scope"`
	Outcome   Outcome          `json:"outcome"`
	CreatedAt time.Time        `json:"created_at"`
}

// Fingerprint hashes the request fields that must match on a retry.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
