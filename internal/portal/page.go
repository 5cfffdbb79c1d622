// Package portal drives the utility portal's multi-page status flow
// through a headless browser.
package portal

import (
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// Logger interface for observability
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Handle is one resolved page element, ready for a single interaction.
type Handle interface {
	Click() error
	Fill(value string) error
	Check() error
	Press(key string) error
	SelectByLabel(label string) error
	Text() (string, error)
	Visible() bool
	WaitVisible(timeout time.Duration) error
}

// Page is the slice of browser surface the flow needs. The live
// implementation wraps a playwright page; tests substitute fakes.
type Page interface {
	Goto(url string) error
	ByRole(role, name string) Handle
	BySelector(selector string) Handle
	ByText(text string, exact bool) Handle
	ByLabel(label string) Handle
	ByAncestorOfText(text, ancestor string) Handle
	Evaluate(script string) (interface{}, error)
	URL() string
	Content() (string, error)
	Screenshot() ([]byte, error)
	WaitSettled(timeout time.Duration)
	Sleep(d time.Duration)
}

type pwPage struct {
	p pw.Page
}

// NewPage wraps a live playwright page in the Page surface.
func NewPage(p pw.Page) Page {
	return &pwPage{p: p}
}

func (pp *pwPage) Goto(url string) error {
	_, err := pp.p.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateLoad,
	})
	return err
}

func (pp *pwPage) ByRole(role, name string) Handle {
	return &pwHandle{l: pp.p.GetByRole(pw.AriaRole(role), pw.PageGetByRoleOptions{Name: name}).First()}
}

func (pp *pwPage) BySelector(selector string) Handle {
	return &pwHandle{l: pp.p.Locator(selector).First()}
}

func (pp *pwPage) ByText(text string, exact bool) Handle {
	return &pwHandle{l: pp.p.GetByText(text, pw.PageGetByTextOptions{Exact: pw.Bool(exact)}).First()}
}

func (pp *pwPage) ByLabel(label string) Handle {
	return &pwHandle{l: pp.p.GetByLabel(label).First()}
}

// ByAncestorOfText climbs from a matching text node to a named ancestor
// element. Used where the clickable control wraps an unlabeled text
// node (the portal's radio tiles).
func (pp *pwPage) ByAncestorOfText(text, ancestor string) Handle {
	l := pp.p.GetByText(text).First().Locator("xpath=ancestor::" + ancestor).First()
	return &pwHandle{l: l}
}

func (pp *pwPage) Evaluate(script string) (interface{}, error) {
	return pp.p.Evaluate(script)
}

func (pp *pwPage) URL() string {
	return pp.p.URL()
}

func (pp *pwPage) Content() (string, error) {
	return pp.p.Content()
}

func (pp *pwPage) Screenshot() ([]byte, error) {
	return pp.p.Screenshot(pw.PageScreenshotOptions{FullPage: pw.Bool(true)})
}

func (pp *pwPage) WaitSettled(timeout time.Duration) {
	pp.p.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State:   pw.LoadStateNetworkidle,
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
}

func (pp *pwPage) Sleep(d time.Duration) {
	pp.p.WaitForTimeout(float64(d.Milliseconds()))
}

type pwHandle struct {
	l pw.Locator
}

func (h *pwHandle) Click() error {
	return h.l.Click()
}

func (h *pwHandle) Fill(value string) error {
	return h.l.Fill(value)
}

func (h *pwHandle) Check() error {
	return h.l.Check()
}

func (h *pwHandle) Press(key string) error {
	return h.l.Press(key)
}

func (h *pwHandle) SelectByLabel(label string) error {
	labels := []string{label}
	_, err := h.l.SelectOption(pw.SelectOptionValues{Labels: &labels})
	return err
}

func (h *pwHandle) Text() (string, error) {
	return h.l.TextContent()
}

func (h *pwHandle) Visible() bool {
	visible, err := h.l.IsVisible()
	return err == nil && visible
}

func (h *pwHandle) WaitVisible(timeout time.Duration) error {
	return h.l.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
}
