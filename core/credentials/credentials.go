// Package credentials obtains short-lived session credentials from the
// credential-issuing endpoint. A credential authorizes exactly one handshake
// and must be requested anew for every connection attempt.
package credentials

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyCredential   = errors.New("credential endpoint returned an empty credential")
	ErrExpiredCredential = errors.New("credential already expired")
)

// Credential is an opaque, time-limited token.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the credential is no longer usable at now. A zero
// ExpiresAt never expires.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Acquirer issues credentials for a conversation context and an optional user
// identity.
type Acquirer interface {
	Acquire(ctx context.Context, contextTag, identity string) (Credential, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context, contextTag, identity string) (Credential, error)

func (f AcquirerFunc) Acquire(ctx context.Context, contextTag, identity string) (Credential, error) {
	return f(ctx, contextTag, identity)
}
