package portal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestExecutor(fp *fakePage, dir string) *StepExecutor {
	return NewStepExecutor(fp, NewResolver(nopLogger{}), NewScreenshotSink(dir, nopLogger{}), nopLogger{})
}

func TestExecuteSuccess(t *testing.T) {
	fp := newFakePage()
	fp.addTarget(TargetTaxIDField, "", "")

	out := newTestExecutor(fp, "").Execute(Step{
		Name: "fill tax id", Target: TargetTaxIDField, Action: ActionFill, Value: "59-1234567", Required: true,
	})
	if out.Kind != StepOK {
		t.Fatalf("outcome = %v, want StepOK (%s)", out.Kind, out.Reason)
	}
	if len(fp.actions) != 1 || fp.actions[0] != "fill:label:Tax ID:59-1234567" {
		t.Errorf("actions = %v, want one fill", fp.actions)
	}
}

func TestExecuteRequiredMissIsHard(t *testing.T) {
	fp := newFakePage()

	out := newTestExecutor(fp, "").Execute(Step{
		Name: "submit login", Target: TargetSignIn, Action: ActionClick, Required: true,
	})
	if out.Kind != StepHard {
		t.Fatalf("outcome = %v, want StepHard", out.Kind)
	}
	if out.Err == nil {
		t.Fatal("hard outcome must carry an error")
	}
}

func TestExecuteOptionalMissIsSoft(t *testing.T) {
	fp := newFakePage()

	out := newTestExecutor(fp, "").Execute(Step{
		Name: "dismiss cookie banner", Target: TargetCookieAccept, Action: ActionClick,
	})
	if out.Kind != StepSoft {
		t.Fatalf("outcome = %v, want StepSoft", out.Kind)
	}
	if out.Err != nil {
		t.Errorf("soft outcome must not carry an error, got %v", out.Err)
	}
}

func TestExecuteActionFailure(t *testing.T) {
	fp := newFakePage()
	h := fp.addTarget(TargetContinue, "", "")
	h.clickErr = errors.New("element detached")

	out := newTestExecutor(fp, "").Execute(Step{
		Name: "submit", Target: TargetContinue, Action: ActionClick, Required: true,
	})
	if out.Kind != StepHard {
		t.Fatalf("outcome = %v, want StepHard on action failure", out.Kind)
	}
}

func TestExecutePostconditionMiss(t *testing.T) {
	fp := newFakePage()
	fp.addTarget(TargetSignIn, "", "")

	out := newTestExecutor(fp, "").Execute(Step{
		Name: "submit login", Target: TargetSignIn, Action: ActionClick, Required: true, WaitFor: TargetDashboard,
	})
	if out.Kind != StepHard {
		t.Fatalf("outcome = %v, want StepHard when the next page never appears", out.Kind)
	}
}

func TestExecuteCapturesScreenshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	fp := newFakePage()

	newTestExecutor(fp, dir).Execute(Step{
		Name: "submit login", Target: TargetSignIn, Action: ActionClick, Required: true,
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("screenshots = %d, want 1", len(entries))
	}
	if ext := filepath.Ext(entries[0].Name()); ext != ".png" {
		t.Errorf("screenshot name %q, want .png", entries[0].Name())
	}
}

func TestCaptureFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	fp := newFakePage()
	fp.shotErr = errors.New("page crashed")

	out := newTestExecutor(fp, dir).Execute(Step{
		Name: "dismiss cookie banner", Target: TargetCookieAccept, Action: ActionClick,
	})
	if out.Kind != StepSoft {
		t.Fatalf("outcome = %v, diagnostics must not change the step outcome", out.Kind)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no screenshot should be written when capture fails, got %d", len(entries))
	}
}
