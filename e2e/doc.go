// Package e2e contains end-to-end tests that drive a real headless Chrome
// through the full verification pipeline.
//
// These tests require a Chrome/Chromium binary (or CHROME_BIN pointing at
// one) and are kept behind a build tag so the regular test run stays hermetic:
//
//	go test -tags e2e ./e2e/...
package e2e
