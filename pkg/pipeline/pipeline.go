// Package pipeline composes the verification stages into a single linear run:
// acquire a browser session, navigate and settle, wait for the component to
// become visible, capture the screenshot artifact, release the session.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"dev/matchbox/smokecheck/pkg/artifact"
	"dev/matchbox/smokecheck/pkg/browser"
	"dev/matchbox/smokecheck/pkg/config"
	"dev/matchbox/smokecheck/pkg/server"
	"dev/matchbox/smokecheck/pkg/verify"
)

// Session is the slice of the browser session the pipeline drives.
type Session interface {
	verify.Prober
	Navigate(target string) error
	Settle(timeout time.Duration) error
	HTML() (string, error)
	Screenshot() ([]byte, error)
	Close() error
}

// SessionManager acquires browser sessions. Tests substitute it to inject
// faults at each stage.
type SessionManager interface {
	Acquire(ctx context.Context) (Session, error)
}

type rodManager struct {
	opts browser.Options
}

func (m rodManager) Acquire(ctx context.Context) (Session, error) {
	return browser.Launch(ctx, m.opts)
}

// Runner runs the verification pipeline. The zero value uses a real headless
// browser and the default logger.
type Runner struct {
	Sessions SessionManager
	Logger   *log.Logger
}

// Run executes one verification run. It returns nil when the target element
// was observed visible and the screenshot was written; any stage failure
// aborts the run immediately. An acquired session is released exactly once on
// every exit path, including ctx deadline expiry.
func (r *Runner) Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}

	runID := uuid.New().String()
	logger.Printf("run %s: verifying %q in %s", runID, cfg.Selector, cfg.Target)

	target, stopServer, err := resolveTarget(cfg, logger)
	if err != nil {
		return err
	}
	if stopServer != nil {
		defer stopServer()
	}

	sess, err := r.sessions(cfg).Acquire(ctx)
	if err != nil {
		return err
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := sess.Close(); err != nil {
			logger.Printf("run %s: error releasing browser session: %v", runID, err)
		}
	}
	defer release()

	logger.Printf("run %s: navigating to %s", runID, target)
	if err := sess.Navigate(target); err != nil {
		return err
	}
	if err := sess.Settle(cfg.SettleTimeout); err != nil {
		// Advisory only; the assertion below is the real readiness gate.
		logger.Printf("run %s: page did not settle: %v", runID, err)
	}

	// Emit the serialized markup before asserting so a failing run still
	// leaves evidence of what the page actually contained.
	if html, err := sess.HTML(); err != nil {
		logger.Printf("run %s: could not serialize page markup: %v", runID, err)
	} else {
		logger.Printf("run %s: page markup before assertion:\n%s", runID, html)
	}

	if err := verify.WaitVisible(ctx, sess, cfg.Selector, cfg.WaitTimeout, cfg.PollInterval); err != nil {
		captureFailureEvidence(sess, cfg, logger, runID)
		return err
	}

	png, err := sess.Screenshot()
	if err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := artifact.Save(cfg.OutputPath, png); err != nil {
		return err
	}

	logger.Printf("run %s: component %q visible, screenshot written to %s", runID, cfg.Selector, cfg.OutputPath)
	return nil
}

func (r *Runner) sessions(cfg config.Config) SessionManager {
	if r.Sessions != nil {
		return r.Sessions
	}
	return rodManager{opts: browser.Options{Headless: cfg.Headless, Bin: cfg.BrowserBin}}
}

// resolveTarget turns the configured target into a browser-loadable URL,
// starting the loopback asset server when a serve directory is configured.
// The returned stop function, when non-nil, shuts the server down.
func resolveTarget(cfg config.Config, logger *log.Logger) (string, func(), error) {
	if cfg.ServeDir == "" {
		target, err := cfg.NavigationURL()
		if err != nil {
			return "", nil, fmt.Errorf("resolving navigation target: %w", err)
		}
		return target, nil, nil
	}

	srv := server.New(cfg.ServeDir)
	base, err := srv.Start()
	if err != nil {
		return "", nil, fmt.Errorf("starting asset server for %s: %w", cfg.ServeDir, err)
	}
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Printf("error shutting down asset server: %v", err)
		}
	}
	return base + "/" + strings.TrimPrefix(cfg.Target, "/"), stop, nil
}

// captureFailureEvidence writes a diagnostic screenshot next to the configured
// artifact path so a failing assertion still leaves something to look at.
// Best effort: failures here are logged, not surfaced, to keep the original
// assertion error as the run's result.
func captureFailureEvidence(sess Session, cfg config.Config, logger *log.Logger, runID string) {
	png, err := sess.Screenshot()
	if err != nil {
		logger.Printf("run %s: could not capture failure screenshot: %v", runID, err)
		return
	}
	path := artifact.FailurePath(cfg.OutputPath)
	if err := artifact.Save(path, png); err != nil {
		logger.Printf("run %s: could not write failure screenshot: %v", runID, err)
		return
	}
	logger.Printf("run %s: failure screenshot written to %s", runID, path)
}
