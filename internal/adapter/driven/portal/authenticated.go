package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

var _ driven.PortalAdapter = (*AuthenticatedAdapter)(nil)

// AuthenticatedAdapter logs into a portal before extracting its listing.
type AuthenticatedAdapter struct {
	core
	login LoginRules
}

// NewAuthenticatedAdapter creates an AuthenticatedAdapter. A descriptor without
// login rules gets an empty rule set, which fails every login attempt.
func NewAuthenticatedAdapter(desc Descriptor, timeouts Timeouts) *AuthenticatedAdapter {
	a := &AuthenticatedAdapter{core: newCore(desc, timeouts)}
	if desc.Login != nil {
		a.login = *desc.Login
	}
	return a
}

// Scrape logs in with cred and extracts the listing shown after login. Missing
// username or password fails before the page is touched.
func (a *AuthenticatedAdapter) Scrape(ctx context.Context, page driven.Page, cred model.Credential) ([]model.Bid, error) {
	portal := a.portalName(cred)
	if !cred.HasLogin() {
		return nil, &AuthenticationError{Portal: portal, Reason: "username and password are required"}
	}

	target := a.targetURL(cred)
	slog.Info("scraping authenticated portal", "portal", portal, "url", target)

	if err := a.navigate(ctx, page, portal, target); err != nil {
		return nil, err
	}
	if err := a.authenticate(ctx, page, portal, cred); err != nil {
		return nil, err
	}
	slog.Info("portal login succeeded", "portal", portal)

	if err := a.waitForListing(ctx, page, portal); err != nil {
		return nil, err
	}
	return a.extract(ctx, page, portal, target)
}

func (a *AuthenticatedAdapter) authenticate(ctx context.Context, page driven.Page, portal string, cred model.Credential) error {
	usernameSel, err := a.resolve(ctx, page, a.login.UsernameSelectors)
	if err != nil {
		return &AuthenticationError{Portal: portal, Reason: "username field not found", Err: err}
	}
	passwordSel, err := a.resolve(ctx, page, a.login.PasswordSelectors)
	if err != nil {
		return &AuthenticationError{Portal: portal, Reason: "password field not found", Err: err}
	}
	submitSel, err := a.resolve(ctx, page, a.login.SubmitSelectors)
	if err != nil {
		return &AuthenticationError{Portal: portal, Reason: "submit control not found", Err: err}
	}

	fillCtx, cancel := context.WithTimeout(ctx, a.timeouts.Element)
	defer cancel()

	if err := page.Fill(fillCtx, usernameSel, cred.Username); err != nil {
		return &NavigationError{Portal: portal, Step: "fill username", Err: err}
	}
	if err := page.Fill(fillCtx, passwordSel, cred.Password); err != nil {
		return &NavigationError{Portal: portal, Step: "fill password", Err: err}
	}

	submitCtx, cancelSubmit := context.WithTimeout(ctx, a.timeouts.Navigation)
	defer cancelSubmit()

	if err := page.ClickAndWait(submitCtx, submitSel); err != nil {
		return &NavigationError{Portal: portal, Step: "submit login", Err: err}
	}

	ok, err := a.loggedIn(ctx, page)
	if err != nil {
		return &AuthenticationError{Portal: portal, Reason: "could not inspect page after login", Err: err}
	}
	if !ok {
		return &AuthenticationError{Portal: portal, Reason: "portal rejected the login"}
	}
	return nil
}

// resolve returns the first candidate selector present on the page.
func (a *AuthenticatedAdapter) resolve(ctx context.Context, page driven.Page, candidates []string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.timeouts.Lookup)
	defer cancel()

	for _, sel := range candidates {
		found, err := page.Has(lookupCtx, sel)
		if err != nil {
			return "", err
		}
		if found {
			return sel, nil
		}
	}
	return "", fmt.Errorf("none of %d candidate selectors matched", len(candidates))
}

// loggedIn applies the post-login heuristic: a logout control means success;
// otherwise success means no failure phrase appears in the page.
func (a *AuthenticatedAdapter) loggedIn(ctx context.Context, page driven.Page) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.timeouts.Lookup)
	defer cancel()

	for _, sel := range a.login.LogoutSelectors {
		found, err := page.Has(lookupCtx, sel)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}

	markup, err := page.HTML(lookupCtx)
	if err != nil {
		return false, err
	}
	content := visibleText(markup)
	for _, phrase := range a.login.FailurePhrases {
		if strings.Contains(content, phrase) {
			return false, nil
		}
	}
	return true, nil
}

// visibleText returns the lowercased body text of markup with script-like
// nodes removed, so inline scripts and unrendered templates never match.
func visibleText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.ToLower(markup)
	}
	body := doc.Find("body")
	body.Find("script, template, style, noscript").Remove()
	return strings.ToLower(cleanText(body.Text()))
}
