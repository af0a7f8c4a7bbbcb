package driven

import "context"

// Page is one browser tab. Every blocking step honors the deadline carried by ctx.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible.
	WaitVisible(ctx context.Context, selector string) error
	// Has reports whether an element matching selector exists right now.
	Has(ctx context.Context, selector string) (bool, error)
	// Fill replaces the value of the input matching selector.
	Fill(ctx context.Context, selector, value string) error
	// ClickAndWait clicks the element matching selector and waits for the
	// resulting navigation to finish.
	ClickAndWait(ctx context.Context, selector string) error
	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Browser owns a single shared browser process.
type Browser interface {
	// AcquirePage opens a new page, launching the browser on first use.
	AcquirePage(ctx context.Context) (Page, error)
	// Release tears the browser down. It is safe to call when nothing was launched.
	Release() error
}
