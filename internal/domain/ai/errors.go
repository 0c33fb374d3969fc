package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

var (
	ErrInvalidCredential = errors.New("invalid credential format")
	ErrEmptyResponse     = errors.New("empty model response")
)

// Kind classifies a provider failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConstruction: the client could not be built.
	KindConstruction
	// KindTransport: the call failed (timeout, refused, non-2xx, auth).
	KindTransport
	// KindSchema: the call succeeded but the output has no structure.
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindConstruction:
		return "construction"
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider ProviderID
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Construction(p ProviderID, err error) error { return &Error{Kind: KindConstruction, Provider: p, Err: err} }
func Transport(p ProviderID, err error) error    { return &Error{Kind: KindTransport, Provider: p, Err: err} }
func Schema(p ProviderID, err error) error       { return &Error{Kind: KindSchema, Provider: p, Err: err} }

// KindOf returns the Kind of err, or KindUnknown when it was not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
