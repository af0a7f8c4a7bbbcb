package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCredential is returned by Validate when a credential violates its invariants.
var ErrInvalidCredential = errors.New("invalid credential")

// Well-known portal addresses used when a credential is saved without a URL.
const (
	MetroPortalURL = "https://business.metro.net/webcenter/portal/VendorPortal/pages_home/solicitations/openSolicitations"
	SEPTAPortalURL = "https://epsadmin.septa.org/vendor/requisitions/list/"
)

// Credential is the stored configuration for one vendor portal. Username and
// Password are only meaningful for authenticated portals.
type Credential struct {
	ID         int64
	PortalType PortalType
	PortalName string
	URL        string
	Username   string
	Password   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasLogin reports whether both username and password are present.
func (c Credential) HasLogin() bool {
	return strings.TrimSpace(c.Username) != "" && c.Password != ""
}

// Normalize applies the save-time invariants: public credentials never carry
// login secrets, and an empty URL falls back to the portal's well-known address.
func (c Credential) Normalize() Credential {
	c.PortalName = strings.TrimSpace(c.PortalName)
	c.URL = strings.TrimSpace(c.URL)
	c.Username = strings.TrimSpace(c.Username)

	if c.PortalType == PortalTypePublic {
		c.Username = ""
		c.Password = ""
	}

	if c.URL == "" {
		c.URL = DefaultPortalURL(c.PortalType)
	}

	return c
}

// Validate checks that the credential can be persisted.
func (c Credential) Validate() error {
	if c.PortalName == "" {
		return fmt.Errorf("%w: portal name is required", ErrInvalidCredential)
	}
	if _, err := ParsePortalType(string(c.PortalType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if c.PortalType.RequiresLogin() && !c.HasLogin() {
		return fmt.Errorf("%w: username and password are required for authenticated portals", ErrInvalidCredential)
	}
	return nil
}

// DefaultPortalURL returns the compiled-in address for a portal type.
func DefaultPortalURL(t PortalType) string {
	switch t {
	case PortalTypePublic:
		return MetroPortalURL
	case PortalTypeAuthenticated:
		return SEPTAPortalURL
	default:
		return ""
	}
}
