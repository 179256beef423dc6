package session

import (
	"context"
	"errors"
)

const (
	// KeyToken is the storage key holding the raw credential.
	KeyToken = "token"
	// KeyUser is the storage key holding the serialized profile.
	KeyUser = "user"
)

// ErrEmptyCredential is returned by Save when the record has no credential.
var ErrEmptyCredential = errors.New("empty credential")

// ErrCorruptRecord is returned by Load when persisted state is unreadable or
// only half present.
var ErrCorruptRecord = errors.New("persisted session corrupt")

// ErrStoreUnavailable wraps backend failures (I/O, Redis connectivity).
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists the current credential and profile.
//
// Save and Clear are atomic from the caller's perspective. Load reports
// ok=false with a nil error when nothing is persisted.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context) (rec Record, ok bool, err error)
	Clear(ctx context.Context) error
}
