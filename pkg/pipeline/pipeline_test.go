package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/matchbox/smokecheck/pkg/artifact"
	"dev/matchbox/smokecheck/pkg/browser"
	"dev/matchbox/smokecheck/pkg/config"
	"dev/matchbox/smokecheck/pkg/verify"
)

// fakeSession scripts the behavior of each stage so faults can be injected
// one stage at a time.
type fakeSession struct {
	navErr    error
	settleErr error
	states    []verify.State
	probeIdx  int
	html      string
	shot      []byte
	shotErr   error

	navigatedTo string
	closeCalls  int
}

func (s *fakeSession) Navigate(target string) error {
	s.navigatedTo = target
	return s.navErr
}

func (s *fakeSession) Settle(time.Duration) error { return s.settleErr }

func (s *fakeSession) Probe(string) (verify.State, error) {
	if s.probeIdx < len(s.states) {
		st := s.states[s.probeIdx]
		s.probeIdx++
		return st, nil
	}
	if len(s.states) == 0 {
		return verify.StateAbsent, nil
	}
	return s.states[len(s.states)-1], nil
}

func (s *fakeSession) HTML() (string, error) { return s.html, nil }

func (s *fakeSession) Screenshot() ([]byte, error) { return s.shot, s.shotErr }

func (s *fakeSession) Close() error {
	s.closeCalls++
	return nil
}

type fakeManager struct {
	sess         *fakeSession
	err          error
	acquisitions int
}

func (m *fakeManager) Acquire(context.Context) (Session, error) {
	m.acquisitions++
	if m.err != nil {
		return nil, m.err
	}
	return m.sess, nil
}

func quietRunner(mgr SessionManager) *Runner {
	return &Runner{
		Sessions: mgr,
		Logger:   log.New(io.Discard, "", 0),
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Target:        "dist/test.html",
		Selector:      "matchbox-friends-list",
		OutputPath:    filepath.Join(t.TempDir(), "verification", "verification.png"),
		WaitTimeout:   50 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		SettleTimeout: 50 * time.Millisecond,
	}
}

func TestRunSuccess(t *testing.T) {
	sess := &fakeSession{
		states: []verify.State{verify.StateAbsent, verify.StateHidden, verify.StateVisible},
		html:   "<html><body><matchbox-friends-list></matchbox-friends-list></body></html>",
		shot:   []byte("png-bytes"),
	}
	mgr := &fakeManager{sess: sess}
	cfg := testConfig(t)

	err := quietRunner(mgr).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, sess.closeCalls, "session must be released exactly once")
	assert.True(t, strings.HasPrefix(sess.navigatedTo, "file://"), "navigated to %q", sess.navigatedTo)

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err, "screenshot must be written on success")
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestRunLaunchFailure(t *testing.T) {
	mgr := &fakeManager{err: &browser.LaunchError{Err: errors.New("no chrome binary")}}
	cfg := testConfig(t)

	err := quietRunner(mgr).Run(context.Background(), cfg)

	var launchErr *browser.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.NoFileExists(t, cfg.OutputPath)
}

func TestRunNavigationFailure(t *testing.T) {
	sess := &fakeSession{
		navErr: &browser.NavigationError{Target: "file:///nope.html", Err: errors.New("net::ERR_FILE_NOT_FOUND")},
	}
	mgr := &fakeManager{sess: sess}
	cfg := testConfig(t)

	err := quietRunner(mgr).Run(context.Background(), cfg)

	var navErr *browser.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, 1, sess.closeCalls, "session must be released exactly once on navigation failure")
	assert.Equal(t, 0, sess.probeIdx, "wait stage must not run after navigation failure")
	assert.NoFileExists(t, cfg.OutputPath)
}

func TestRunAssertionTimeout(t *testing.T) {
	tests := []struct {
		name      string
		states    []verify.State
		wantState verify.State
	}{
		{name: "element absent", states: []verify.State{verify.StateAbsent}, wantState: verify.StateAbsent},
		{name: "element hidden", states: []verify.State{verify.StateHidden}, wantState: verify.StateHidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{states: tt.states, shot: []byte("failure-png")}
			mgr := &fakeManager{sess: sess}
			cfg := testConfig(t)

			err := quietRunner(mgr).Run(context.Background(), cfg)

			var timeoutErr *verify.TimeoutError
			require.ErrorAs(t, err, &timeoutErr)
			assert.Equal(t, tt.wantState, timeoutErr.LastState)
			assert.Equal(t, cfg.Selector, timeoutErr.Selector)
			assert.Equal(t, 1, sess.closeCalls, "session must be released exactly once on timeout")

			// Failure evidence lands next to the configured artifact path;
			// the success artifact itself is not written.
			assert.NoFileExists(t, cfg.OutputPath)
			assert.FileExists(t, artifact.FailurePath(cfg.OutputPath))
		})
	}
}

func TestRunCaptureFailure(t *testing.T) {
	sess := &fakeSession{
		states: []verify.State{verify.StateVisible},
		shot:   []byte("png-bytes"),
	}
	mgr := &fakeManager{sess: sess}

	cfg := testConfig(t)
	// Parent of the output path is a regular file, so the write must fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.OutputPath = filepath.Join(blocker, "verification.png")

	err := quietRunner(mgr).Run(context.Background(), cfg)

	var writeErr *artifact.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 1, sess.closeCalls, "session must be released exactly once on capture failure")
}

func TestRunScreenshotFailure(t *testing.T) {
	sess := &fakeSession{
		states:  []verify.State{verify.StateVisible},
		shotErr: errors.New("target closed"),
	}
	mgr := &fakeManager{sess: sess}
	cfg := testConfig(t)

	err := quietRunner(mgr).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, 1, sess.closeCalls)
}

func TestRunReleasesOnDeadline(t *testing.T) {
	sess := &fakeSession{states: []verify.State{verify.StateAbsent}}
	mgr := &fakeManager{sess: sess}

	cfg := testConfig(t)
	cfg.WaitTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := quietRunner(mgr).Run(ctx, cfg)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, sess.closeCalls, "deadline expiry must still release the session")
}

func TestRunInvalidConfig(t *testing.T) {
	mgr := &fakeManager{sess: &fakeSession{}}
	cfg := testConfig(t)
	cfg.Selector = ""

	err := quietRunner(mgr).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, 0, mgr.acquisitions, "no browser launch for invalid configuration")
}

func TestRunOverwritesArtifact(t *testing.T) {
	cfg := testConfig(t)

	for _, content := range []string{"first-run", "second-run"} {
		sess := &fakeSession{
			states: []verify.State{verify.StateVisible},
			shot:   []byte(content),
		}
		err := quietRunner(&fakeManager{sess: sess}).Run(context.Background(), cfg)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("second-run"), data, "artifact must be overwritten, not versioned")

	entries, err := os.ReadDir(filepath.Dir(cfg.OutputPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunWithServeDir(t *testing.T) {
	dir := t.TempDir()
	page := `<!DOCTYPE html><html><body><matchbox-friends-list></matchbox-friends-list></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.html"), []byte(page), 0644))

	sess := &fakeSession{
		states: []verify.State{verify.StateVisible},
		shot:   []byte("png-bytes"),
	}
	mgr := &fakeManager{sess: sess}

	cfg := testConfig(t)
	cfg.ServeDir = dir
	cfg.Target = "test.html"

	err := quietRunner(mgr).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sess.navigatedTo, "http://127.0.0.1:"),
		"serve mode must navigate to the loopback server, got %q", sess.navigatedTo)
	assert.True(t, strings.HasSuffix(sess.navigatedTo, "/test.html"), "navigated to %q", sess.navigatedTo)
}
