package portal

import (
	"fmt"
	"time"
)

// fakePage keys elements by a descriptor string mirroring the lookup
// call, e.g. "role:button:Sign In" or "css:#loginUsername". Lookups for
// unregistered descriptors yield a handle that never becomes visible.
type fakePage struct {
	handles map[string]*fakeHandle
	evals   map[string]interface{}
	visited []string
	actions []string
	gotoErr error
	shot    []byte
	shotErr error
}

func newFakePage() *fakePage {
	return &fakePage{
		handles: make(map[string]*fakeHandle),
		evals:   make(map[string]interface{}),
		shot:    []byte("png"),
	}
}

// add registers a visible element under a descriptor key.
func (fp *fakePage) add(key, text string) *fakeHandle {
	h := &fakeHandle{page: fp, key: key, present: true, text: text}
	fp.handles[key] = h
	return h
}

// addTarget registers the target's first catalog strategy, with value
// interpolated the way the resolver would.
func (fp *fakePage) addTarget(target SemanticTarget, value, text string) *fakeHandle {
	s := interpolate(defaultTargets()[target][0], value)
	return fp.add(strategyKey(s), text)
}

func strategyKey(s Strategy) string {
	switch s.Kind {
	case ByRole:
		return "role:" + s.Role + ":" + s.Name
	case BySelector, ByProbe:
		return "css:" + s.Selector
	case ByText:
		return "text:" + s.Text
	case ByLabel:
		return "label:" + s.Text
	case ByAncestor:
		return "ancestor:" + s.Text + ":" + s.Ancestor
	}
	return ""
}

func (fp *fakePage) lookup(key string) Handle {
	if h, ok := fp.handles[key]; ok {
		return h
	}
	return &fakeHandle{page: fp, key: key}
}

func (fp *fakePage) Goto(url string) error {
	fp.visited = append(fp.visited, url)
	return fp.gotoErr
}

func (fp *fakePage) ByRole(role, name string) Handle {
	return fp.lookup("role:" + role + ":" + name)
}

func (fp *fakePage) BySelector(selector string) Handle {
	return fp.lookup("css:" + selector)
}

func (fp *fakePage) ByText(text string, exact bool) Handle {
	return fp.lookup("text:" + text)
}

func (fp *fakePage) ByLabel(label string) Handle {
	return fp.lookup("label:" + label)
}

func (fp *fakePage) ByAncestorOfText(text, ancestor string) Handle {
	return fp.lookup("ancestor:" + text + ":" + ancestor)
}

func (fp *fakePage) Evaluate(script string) (interface{}, error) {
	if v, ok := fp.evals[script]; ok {
		return v, nil
	}
	return false, nil
}

func (fp *fakePage) URL() string { return "https://portal.test/current" }

func (fp *fakePage) Content() (string, error) { return "<html></html>", nil }

func (fp *fakePage) Screenshot() ([]byte, error) { return fp.shot, fp.shotErr }

func (fp *fakePage) WaitSettled(timeout time.Duration) {}

func (fp *fakePage) Sleep(d time.Duration) {}

type fakeHandle struct {
	page    *fakePage
	key     string
	present bool
	text    string
	textErr error

	clickErr error
	fillErr  error
}

func (h *fakeHandle) record(action string) {
	h.page.actions = append(h.page.actions, action)
}

func (h *fakeHandle) Click() error {
	if h.clickErr != nil {
		return h.clickErr
	}
	h.record("click:" + h.key)
	return nil
}

func (h *fakeHandle) Fill(value string) error {
	if h.fillErr != nil {
		return h.fillErr
	}
	h.record("fill:" + h.key + ":" + value)
	return nil
}

func (h *fakeHandle) Check() error {
	h.record("check:" + h.key)
	return nil
}

func (h *fakeHandle) Press(key string) error {
	h.record("press:" + h.key + ":" + key)
	return nil
}

func (h *fakeHandle) SelectByLabel(label string) error {
	h.record("select:" + h.key + ":" + label)
	return nil
}

func (h *fakeHandle) Text() (string, error) { return h.text, h.textErr }

func (h *fakeHandle) Visible() bool { return h.present }

func (h *fakeHandle) WaitVisible(timeout time.Duration) error {
	if !h.present {
		return fmt.Errorf("element %s not visible", h.key)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Printf(format string, v ...interface{}) {}
func (nopLogger) Errorf(format string, v ...interface{}) {}
