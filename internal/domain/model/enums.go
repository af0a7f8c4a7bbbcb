package model

import "fmt"

// PortalType identifies which adapter variant scrapes a portal.
type PortalType string

const (
	PortalTypePublic        PortalType = "public"
	PortalTypeAuthenticated PortalType = "authenticated"
)

// ParsePortalType converts s into a PortalType. Only the closed set of known
// portal types is accepted.
func ParsePortalType(s string) (PortalType, error) {
	switch PortalType(s) {
	case PortalTypePublic, PortalTypeAuthenticated:
		return PortalType(s), nil
	default:
		return "", fmt.Errorf("unknown portal type %q", s)
	}
}

// RequiresLogin reports whether credentials of this type carry a username and password.
func (t PortalType) RequiresLogin() bool {
	return t == PortalTypeAuthenticated
}
