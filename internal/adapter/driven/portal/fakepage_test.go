package portal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// fakePage serves canned HTML and records interactions. Navigating to a URL
// loads pages[url]; clicking loads afterSubmit.
type fakePage struct {
	pages       map[string]string
	afterSubmit string
	current     string

	navigateErr error
	waitErr     error

	navigations []string
	filled      map[string]string
	clicked     []string
}

func newFakePage(pages map[string]string) *fakePage {
	return &fakePage{pages: pages, filled: map[string]string{}}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	if p.navigateErr != nil {
		return p.navigateErr
	}
	html, ok := p.pages[url]
	if !ok {
		return errors.New("404 " + url)
	}
	p.current = html
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if p.waitErr != nil {
		return p.waitErr
	}
	ok, err := p.Has(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return context.DeadlineExceeded
	}
	return nil
}

func (p *fakePage) Has(_ context.Context, selector string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.current))
	if err != nil {
		return false, err
	}
	return doc.Find(selector).Length() > 0, nil
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	p.filled[selector] = value
	return nil
}

func (p *fakePage) ClickAndWait(_ context.Context, selector string) error {
	p.clicked = append(p.clicked, selector)
	p.current = p.afterSubmit
	return nil
}

func (p *fakePage) HTML(_ context.Context) (string, error) {
	return p.current, nil
}

func (p *fakePage) Close() error { return nil }

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}
