package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means the snapshot carries no player info,
	// usually because the upstream is under maintenance.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrShowcaseClosed means the player exposes no characters.
	ErrShowcaseClosed = errors.New("showcase closed")
	// ErrTransientNetwork marks a timeout talking to an upstream.
	ErrTransientNetwork = errors.New("transient network failure")
	// ErrMalformedSnapshot marks a document that is not shaped like a snapshot.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrInvalidUID rejects player ids that are not 9 or 10 digits.
	ErrInvalidUID = errors.New("invalid uid")
)

// UnknownIDError is returned when an id has no entry in any loaded lookup
// table version.
type UnknownIDError struct {
	Kind string
	ID   string
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("unknown %s id %q", e.Kind, e.ID)
}

// AnomalyError describes a derived value outside its expected range. It is
// logged and never aborts normalization.
type AnomalyError struct {
	AvatarID int
	Field    string
	Value    float64
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("avatar %d: %s is %v", e.AvatarID, e.Field, e.Value)
}
