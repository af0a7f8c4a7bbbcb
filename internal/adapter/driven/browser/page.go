package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

var _ driven.Page = (*page)(nil)

// page adapts a rod page to the driven.Page port. Each call rebinds the rod page
// to the caller's context so per-step deadlines apply.
type page struct {
	page *rod.Page
}

func (p *page) Navigate(ctx context.Context, url string) error {
	rp := p.page.Context(ctx)
	if err := rp.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := rp.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *page) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %q: %w", selector, err)
	}
	return nil
}

func (p *page) Has(ctx context.Context, selector string) (bool, error) {
	ok, _, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("query %q: %w", selector, err)
	}
	return ok, nil
}

func (p *page) Fill(ctx context.Context, selector, value string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %q: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input %q: %w", selector, err)
	}
	return nil
}

func (p *page) ClickAndWait(ctx context.Context, selector string) error {
	rp := p.page.Context(ctx)
	el, err := rp.Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}

	wait := rp.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait navigation after %q: %w", selector, err)
	}
	return nil
}

func (p *page) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

func (p *page) Close() error {
	return p.page.Close()
}
