package attempt

import "fmt"

// Purpose identifies the guarded flow a counter belongs to. Counters for
// different purposes never share keys, so failed logins cannot poison the
// password reset budget for the same identifier.
type Purpose uint8

const (
	PurposeUnspecified Purpose = iota
	PurposeLogin
	PurposePasswordReset
)

func (p Purpose) String() string {
	switch p {
	case PurposeLogin:
		return "login"
	case PurposePasswordReset:
		return "password_reset"
	default:
		return "unspecified"
	}
}

func (p Purpose) valid() bool {
	return p == PurposeLogin || p == PurposePasswordReset
}

// ParsePurpose maps a wire name back to a Purpose.
func ParsePurpose(s string) (Purpose, error) {
	switch s {
	case "login":
		return PurposeLogin, nil
	case "password_reset":
		return PurposePasswordReset, nil
	default:
		return PurposeUnspecified, fmt.Errorf("%w: %q", ErrUnknownPurpose, s)
	}
}
