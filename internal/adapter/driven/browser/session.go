// Package browser implements the Browser port on top of go-rod. A Session owns
// at most one Chromium process for the lifetime of an orchestration run.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// DefaultUserAgent is sent by every page so portals serve their desktop markup.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Compile-time interface satisfaction check.
var _ driven.Browser = (*Session)(nil)

// Options configures how the browser process is launched.
type Options struct {
	// Bin is an explicit Chromium binary. Empty lets the launcher locate or download one.
	Bin       string
	Headless  bool
	UserAgent string
}

// Session lazily launches a single browser and hands out pages bound to it.
type Session struct {
	opts Options

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewSession creates a Session. Nothing is launched until AcquirePage is called.
func NewSession(opts Options) *Session {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Session{opts: opts}
}

// AcquirePage returns a new page on the shared browser, launching it first if needed.
// Launch failures are returned as-is; the session does not retry.
func (s *Session) AcquirePage(ctx context.Context) (driven.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		if err := s.launch(ctx); err != nil {
			return nil, err
		}
	}

	p, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.opts.UserAgent}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	return &page{page: p}, nil
}

// Release closes the browser process and clears all state. It is idempotent.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}

	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	s.browser = nil
	s.launcher = nil

	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	slog.Debug("browser released")
	return nil
}

func (s *Session) launch(ctx context.Context) error {
	l := launcher.New().
		Context(ctx).
		Headless(s.opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-zygote")
	if s.opts.Bin != "" {
		l = l.Bin(s.opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return fmt.Errorf("connect browser: %w", err)
	}

	s.launcher = l
	s.browser = b
	slog.Info("browser launched", "headless", s.opts.Headless)
	return nil
}
