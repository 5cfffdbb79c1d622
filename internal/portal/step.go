package portal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Action is the single interaction a step performs on its target.
type Action int

const (
	ActionClick Action = iota
	ActionFill
	ActionCheck
	ActionSelect
	ActionPress
)

// OutcomeKind classifies one executed step.
type OutcomeKind int

const (
	// StepOK: the step ran and its postcondition (if any) held.
	StepOK OutcomeKind = iota
	// StepSoft: an optional step missed its target or action; the flow
	// logs it and proceeds.
	StepSoft
	// StepHard: a required step failed; the current row aborts.
	StepHard
)

// Outcome is the result of executing one step.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Step is one logical interaction of the portal flow: resolve a target,
// perform the action, settle, optionally verify a postcondition target.
type Step struct {
	Name     string
	Target   SemanticTarget
	Arg      string // row data interpolated into the target's strategies
	Action   Action
	Value    string // fill text / select label / key to press
	Required bool
	Settle   time.Duration
	WaitFor  SemanticTarget // postcondition; empty means none
}

// StepExecutor runs steps against one page, capturing a screenshot on
// every failure path.
type StepExecutor struct {
	page  Page
	res   *Resolver
	shots *ScreenshotSink
	log   Logger
}

// NewStepExecutor binds an executor to a page. shots may be nil to
// disable failure captures.
func NewStepExecutor(page Page, res *Resolver, shots *ScreenshotSink, log Logger) *StepExecutor {
	if log == nil {
		log = &SimpleLogger{}
	}
	return &StepExecutor{page: page, res: res, shots: shots, log: log}
}

// Execute runs one step. A missing target or failed action on an
// optional step yields StepSoft; on a required step, StepHard.
func (e *StepExecutor) Execute(step Step) Outcome {
	handle, ok := e.res.ResolveWith(e.page, step.Target, step.Arg)
	if !ok {
		e.capture(step.Name)
		if step.Required {
			return Outcome{Kind: StepHard, Err: fmt.Errorf("target %q not found", step.Target)}
		}
		return Outcome{Kind: StepSoft, Reason: fmt.Sprintf("target %q not found", step.Target)}
	}

	if err := e.perform(handle, step); err != nil {
		e.capture(step.Name)
		if step.Required {
			return Outcome{Kind: StepHard, Err: fmt.Errorf("%s: %w", step.Name, err)}
		}
		return Outcome{Kind: StepSoft, Reason: err.Error()}
	}

	if step.Settle > 0 {
		e.page.Sleep(step.Settle)
	}

	if step.WaitFor != "" {
		if _, ok := e.res.Resolve(e.page, step.WaitFor); !ok {
			e.capture(step.Name)
			if step.Required {
				return Outcome{Kind: StepHard, Err: fmt.Errorf("%s: expected %q after step", step.Name, step.WaitFor)}
			}
			return Outcome{Kind: StepSoft, Reason: fmt.Sprintf("expected %q after step", step.WaitFor)}
		}
	}

	return Outcome{Kind: StepOK}
}

func (e *StepExecutor) perform(handle Handle, step Step) error {
	switch step.Action {
	case ActionClick:
		return handle.Click()
	case ActionFill:
		return handle.Fill(step.Value)
	case ActionCheck:
		return handle.Check()
	case ActionSelect:
		return handle.SelectByLabel(step.Value)
	case ActionPress:
		return handle.Press(step.Value)
	}
	return fmt.Errorf("unknown action %d", step.Action)
}

func (e *StepExecutor) capture(label string) {
	if e.shots == nil {
		return
	}
	e.shots.Capture(e.page, label)
}

// ScreenshotSink writes failure screenshots into one directory.
type ScreenshotSink struct {
	dir string
	log Logger
}

// NewScreenshotSink returns nil when dir is empty, which disables
// capture entirely.
func NewScreenshotSink(dir string, log Logger) *ScreenshotSink {
	if dir == "" {
		return nil
	}
	if log == nil {
		log = &SimpleLogger{}
	}
	return &ScreenshotSink{dir: dir, log: log}
}

// Capture saves a full-page screenshot named after the failing step.
// Capture failures are logged, never propagated: diagnostics must not
// change a step's outcome.
func (s *ScreenshotSink) Capture(page Page, label string) {
	shot, err := page.Screenshot()
	if err != nil || len(shot) == 0 {
		s.log.Printf("⚠️ screenshot failed for %s: %v", label, err)
		return
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.log.Printf("⚠️ screenshot dir: %v", err)
		return
	}
	name := fmt.Sprintf("%s_%d.png", sanitizeLabel(label), time.Now().UnixMilli())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, shot, 0644); err != nil {
		s.log.Printf("⚠️ screenshot write: %v", err)
		return
	}
	s.log.Printf("📸 saved failure screenshot %s", path)
}

func sanitizeLabel(label string) string {
	label = strings.ToLower(label)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, label)
}
