package token

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of token purposes carried in the typ claim.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind uint8

const (
	// KindUnspecified is the zero value; tokens without a typ claim parse to it
	// and are rejected by [Manager.Parse].
	KindUnspecified Kind = iota
	// KindAccess marks a short-lived per-request credential.
	KindAccess
	// KindRefresh marks a long-lived renewal credential.
	KindRefresh
)

const (
	kindAccessName  = "access"
	kindRefreshName = "refresh"
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return kindAccessName
	case KindRefresh:
		return kindRefreshName
	default:
		return "unspecified"
	}
}

// MarshalJSON rejects unspecified kinds so a typ claim can never be emitted empty.
func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindAccess, KindRefresh:
		return json.Marshal(k.String())
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKind, k)
	}
}

// UnmarshalJSON accepts only the two known kind names; anything else fails the
// enclosing parse with [ErrUnsupportedKind].
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	parsed, err := ParseKind(name)
	if err != nil {
		return err
	}

	*k = parsed
	return nil
}

// ParseKind maps a wire name to a [Kind].
func ParseKind(name string) (Kind, error) {
	switch name {
	case kindAccessName:
		return KindAccess, nil
	case kindRefreshName:
		return KindRefresh, nil
	default:
		return KindUnspecified, fmt.Errorf("%w: %q", ErrUnsupportedKind, name)
	}
}
