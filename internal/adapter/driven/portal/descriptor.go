// Package portal contains the PortalAdapter variants and the declarative
// extraction rules they evaluate. Portal-specific knowledge lives in
// Descriptor values; Extract is the single rule runner shared by every portal.
package portal

import (
	"regexp"
	"time"
)

// DatePolicy decides how dates found in a row map onto bid fields.
type DatePolicy int

const (
	// DueDateOnly treats the first date in a row as the due date; the posted
	// date is the extraction time.
	DueDateOnly DatePolicy = iota
	// PostedThenDue treats the first date as the posted date and the second as
	// the due date. Column order therefore matters.
	PostedThenDue
)

// LoginRules lists ordered selector candidates for a login form and the
// signals used to judge whether the login worked.
type LoginRules struct {
	UsernameSelectors []string
	PasswordSelectors []string
	SubmitSelectors   []string
	LogoutSelectors   []string
	FailurePhrases    []string
}

// Descriptor is everything the rule runner needs to know about one portal.
// Every selector list is ordered: earlier entries win.
type Descriptor struct {
	Name       string
	DefaultURL string

	// ListingSelectors identify the container that signals the listing has rendered.
	ListingSelectors []string
	// RowSelectors are tried in order; the first yielding any rows is used.
	RowSelectors []string
	// CellSelectors are tried in order inside a row; when none match the row
	// itself is the only cell.
	CellSelectors []string
	// TitleSelectors are tried inside a row before falling back to the first non-empty cell.
	TitleSelectors []string
	// HeaderPattern matches titles that belong to header or boilerplate rows.
	HeaderPattern  *regexp.Regexp
	MinTitleLength int

	DatePolicy DatePolicy
	Login      *LoginRules
}

// Extraction limits and defaults shared by all portals.
const (
	MinDescriptionCellLength = 10
	MaxDescriptionLength     = 500
	DefaultQuantity          = "1"
	DefaultDescription       = "No description available"
)

// Step timeouts applied by the adapters.
const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultElementTimeout    = 30 * time.Second
	DefaultLookupTimeout     = 10 * time.Second
)

// DocumentTokens mark an anchor href as a solicitation document.
var DocumentTokens = []string{".pdf", "document", "doc", "attachment"}

// Metro describes the public Metro vendor portal listing of open solicitations.
var Metro = Descriptor{
	Name:       "metro.net",
	DefaultURL: "https://business.metro.net/webcenter/portal/VendorPortal/pages_home/solicitations/openSolicitations",
	ListingSelectors: []string{
		"table",
		".solicitation-list",
		"[id*='solicitation']",
	},
	RowSelectors: []string{
		"tr[data-row]",
		".solicitation-row",
		"tbody tr",
		"li.solicitation",
		"div[class*='solicitation']",
	},
	CellSelectors:  []string{"td", ".cell", "span"},
	TitleSelectors: []string{".title", ".solicitation-title", "td:nth-child(1)"},
	HeaderPattern:  regexp.MustCompile(`(?i)^(title|solicitation|description|due date|no\.?)$`),
	MinTitleLength: 3,
	DatePolicy:     DueDateOnly,
}

// SEPTA describes the SEPTA vendor requisition portal, which requires a login.
var SEPTA = Descriptor{
	Name:       "septa",
	DefaultURL: "https://epsadmin.septa.org/vendor/requisitions/list/",
	ListingSelectors: []string{
		"table",
		".requisition-list",
		"ul.requisitions",
		".content",
	},
	RowSelectors: []string{
		"table tbody tr",
		"table tr",
		".requisition-item",
		"ul.requisitions li",
		".bid-item",
	},
	CellSelectors:  []string{"td", ".field", "span"},
	TitleSelectors: []string{".requisition-title", ".title", "td:nth-child(2)", "td:nth-child(1)"},
	HeaderPattern:  regexp.MustCompile(`(?i)^(title|description|requisition|req(uisition)? ?#|no\.?|date|status|action)s?$`),
	MinTitleLength: 5,
	DatePolicy:     PostedThenDue,
	Login: &LoginRules{
		UsernameSelectors: []string{
			`input[name="username"]`,
			`#username`,
			`input[name="email"]`,
			`input[type="email"]`,
			`input[type="text"]`,
		},
		PasswordSelectors: []string{
			`input[name="password"]`,
			`#password`,
			`input[type="password"]`,
		},
		SubmitSelectors: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
			`#login-button`,
			`form button`,
		},
		LogoutSelectors: []string{
			`a[href*="logout"]`,
			`a[href*="signout"]`,
			`button[name="logout"]`,
			`.logout`,
		},
		FailurePhrases: []string{
			"invalid username",
			"invalid password",
			"login failed",
		},
	},
}
