// Command smokecheck renders a built web page in a headless browser, asserts
// that a named custom element becomes visible, and captures a screenshot
// artifact. Exit status is zero only when the component rendered and the
// artifact was written.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"dev/matchbox/smokecheck/pkg/artifact"
	"dev/matchbox/smokecheck/pkg/browser"
	"dev/matchbox/smokecheck/pkg/config"
	"dev/matchbox/smokecheck/pkg/pipeline"
	"dev/matchbox/smokecheck/pkg/verify"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("Starting smokecheck verification run")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	runner := &pipeline.Runner{Logger: log.Default()}
	if err := runner.Run(ctx, cfg); err != nil {
		reportFailure(err)
		os.Exit(1)
	}

	log.Printf("PASS: component %q rendered, screenshot at %s", cfg.Selector, cfg.OutputPath)
}

// reportFailure names the stage that failed so CI logs are actionable without
// reading the markup dump.
func reportFailure(err error) {
	var launchErr *browser.LaunchError
	var navErr *browser.NavigationError
	var timeoutErr *verify.TimeoutError
	var writeErr *artifact.WriteError

	switch {
	case errors.As(err, &launchErr):
		log.Printf("FAIL (browser launch): %v", err)
	case errors.As(err, &navErr):
		log.Printf("FAIL (navigation): %v", err)
	case errors.As(err, &timeoutErr):
		log.Printf("FAIL (assertion): component %q never became visible, last state: %s",
			timeoutErr.Selector, timeoutErr.LastState)
	case errors.As(err, &writeErr):
		log.Printf("FAIL (artifact): %v", err)
	default:
		log.Printf("FAIL: %v", err)
	}
}
