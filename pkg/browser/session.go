// Package browser manages the headless browser session driven by the
// verification pipeline: process lifecycle, navigation, element probing and
// screenshot capture over the Chrome DevTools Protocol.
package browser

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// LaunchError means the browser engine could not be started or attached to.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return fmt.Sprintf("failed to launch browser: %v", e.Err) }
func (e *LaunchError) Unwrap() error { return e.Err }

// Options configures the browser launch.
type Options struct {
	Headless bool
	// Bin overrides the browser binary. When empty the CHROME_BIN
	// environment variable is consulted, then the launcher's own lookup.
	Bin string
}

// DefaultOptions returns the launch configuration used for CI runs.
func DefaultOptions() Options {
	return Options{Headless: true}
}

// Session owns one browser process and one page for the lifetime of a run.
// It must be closed exactly once on every exit path; the browser process must
// never outlive the run.
type Session struct {
	ID      string
	browser *rod.Browser
	page    *rod.Page
}

// Launch starts a headless browser and opens a blank page. The caller is
// responsible for calling Close on both success and failure paths.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	l := launcher.New()

	bin := opts.Bin
	if bin == "" {
		bin = os.Getenv("CHROME_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	l = l.Headless(opts.Headless)

	// Flags for Docker/CI compatibility
	l = l.Set("no-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, &LaunchError{Err: err}
	}

	b := rod.New().ControlURL(url).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, &LaunchError{Err: err}
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, &LaunchError{Err: fmt.Errorf("failed to create page: %w", err)}
	}

	return &Session{
		ID:      uuid.New().String(),
		browser: b,
		page:    page,
	}, nil
}

// Close terminates the browser process and releases the page handle.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.page = nil
	return err
}

// HTML returns the serialized markup of the current document, the primary
// post-mortem debugging aid when the assertion fails.
func (s *Session) HTML() (string, error) {
	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("serializing page markup: %w", err)
	}
	return html, nil
}

// Screenshot renders the current viewport to a PNG.
func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}
