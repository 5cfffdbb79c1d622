package portal

import (
	"fmt"
	"os"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// SessionOptions controls how the browser behind a session is launched.
type SessionOptions struct {
	Headless    bool
	StepTimeout time.Duration
}

// Session owns one live browser for the duration of a single lookup or
// a whole batch. It is opened once and must be released exactly once.
type Session struct {
	runtime *pw.Playwright
	browser pw.Browser
	page    pw.Page
}

// Install fetches the playwright driver and the Chromium browser.
// Called once at process start; failures are reported but not fatal
// because an externally managed browser may already be present.
func Install() error {
	return pw.Install(&pw.RunOptions{
		Browsers: []string{"chromium"},
	})
}

// OpenSession starts the playwright runtime, launches Chromium and
// opens a fresh page. Everything opened so far is torn down again when
// any later stage fails.
func OpenSession(opts SessionOptions) (*Session, error) {
	runtime, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start Playwright: %v", err)
	}

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
	}
	if path := browserExecutable(); path != "" {
		launch.ExecutablePath = &path
	}

	browser, err := runtime.Chromium.Launch(launch)
	if err != nil {
		runtime.Stop()
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		runtime.Stop()
		return nil, fmt.Errorf("failed to create page: %v", err)
	}

	timeout := opts.StepTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	page.SetDefaultTimeout(float64(timeout.Milliseconds()))

	return &Session{runtime: runtime, browser: browser, page: page}, nil
}

// Page exposes the session's page through the flow's Page surface.
func (s *Session) Page() Page {
	return NewPage(s.page)
}

// Close releases the page, the browser and the runtime, in that order.
// Safe to call from a defer on every exit path.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.page != nil {
		s.page.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.runtime != nil {
		s.runtime.Stop()
	}
}

// browserExecutable prefers an explicit override, then probes the
// system chromium install paths.
func browserExecutable() string {
	if path := os.Getenv("PLAYWRIGHT_EXECUTABLE_PATH"); path != "" {
		return path
	}
	commonPaths := []string{
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/bin/google-chrome",
		"/usr/bin/chromium-browser",
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
