package portal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State is one logical portal page of the lookup flow.
type State string

const (
	StateStart              State = "start"
	StateLogin              State = "login"
	StateAccountSelect      State = "account_select"
	StateServiceCategory    State = "service_category_select"
	StateRegionSelect       State = "region_select"
	StateAdditionalService  State = "additional_service"
	StateCustomerType       State = "customer_type_select"
	StateMasterAccount      State = "master_account_question"
	StateTaxIDAndRequestor  State = "tax_id_and_requestor_info"
	StatePropertyUse        State = "property_use_and_mailing"
	StateConfirmProperty    State = "confirm_property"
	StateAddressEntry       State = "address_and_unit_entry"
	StateConfirmSelection   State = "confirm_selection"
	StateUnitDisambiguation State = "unit_disambiguation"
	StateStatusReadout      State = "status_readout"
	StateDone               State = "done"
)

// EntryMode selects how a row enters the flow.
type EntryMode int

const (
	// ColdEntry traverses every state from Login onward.
	ColdEntry EntryMode = iota
	// WarmEntry assumes an authenticated session sitting on a
	// post-result page and jumps straight to address entry.
	WarmEntry
)

func (m EntryMode) String() string {
	if m == WarmEntry {
		return "warm"
	}
	return "cold"
}

// NotFoundSentinel is the placeholder for a status field that could not
// be extracted. Distinct from a row error.
const NotFoundSentinel = "Not found"

// Credentials authenticate against the portal.
type Credentials struct {
	Username string
	Password string
}

// LookupResult is the outcome of one address run through the flow.
type LookupResult struct {
	MeterStatus      string     `json:"meter_status"`
	PropertyStatus   string     `json:"property_status"`
	StatusCapturedAt *time.Time `json:"status_captured_at,omitempty"`
	StatesVisited    []State    `json:"-"`
}

// Definitive reports whether either status field carries real text,
// i.e. the session is parked on a result page and the next row may
// re-enter warm.
func (r *LookupResult) Definitive() bool {
	if r == nil {
		return false
	}
	return r.MeterStatus != NotFoundSentinel || r.PropertyStatus != NotFoundSentinel
}

// FlowConfig carries the per-batch inputs of the flow.
type FlowConfig struct {
	PortalURL     string
	Creds         Credentials
	TaxID         string
	RequestorName string
	ScreenshotDir string
}

const (
	settleShort = 500 * time.Millisecond
	settleLong  = 1500 * time.Millisecond
)

// Flow sequences the portal's pages for one browser session. One Flow
// serves many rows; the scheduler decides cold vs. warm entry per row.
type Flow struct {
	page Page
	res  *Resolver
	exec *StepExecutor
	cfg  FlowConfig
	log  Logger
}

// NewFlow binds a flow to a live page.
func NewFlow(page Page, cfg FlowConfig, log Logger) *Flow {
	if log == nil {
		log = &SimpleLogger{}
	}
	res := NewResolver(log)
	shots := NewScreenshotSink(cfg.ScreenshotDir, log)
	return &Flow{
		page: page,
		res:  res,
		exec: NewStepExecutor(page, res, shots, log),
		cfg:  cfg,
		log:  log,
	}
}

// Run drives one address through the flow and always returns a result
// whose status fields default to the sentinel. A non-nil error aborts
// the current row only; the session stays up.
func (f *Flow) Run(ctx context.Context, mode EntryMode, address, unit string) (*LookupResult, error) {
	res := &LookupResult{
		MeterStatus:    NotFoundSentinel,
		PropertyStatus: NotFoundSentinel,
	}
	res.StatesVisited = append(res.StatesVisited, StateStart)
	f.log.Printf("🔎 %s entry for %s", mode, address)

	if mode == WarmEntry {
		if err := f.reenter(ctx, res); err != nil {
			return res, err
		}
	} else {
		if err := f.coldTraverse(ctx, res); err != nil {
			return res, err
		}
	}

	if err := f.addressEntry(ctx, res, address, unit); err != nil {
		return res, err
	}
	if err := f.confirmSelection(ctx, res); err != nil {
		return res, err
	}
	f.unitDisambiguation(ctx, res, unit)
	f.statusReadout(ctx, res)

	res.StatesVisited = append(res.StatesVisited, StateDone)
	return res, nil
}

// coldTraverse walks every pre-address state in fixed order.
func (f *Flow) coldTraverse(ctx context.Context, res *LookupResult) error {
	if err := f.login(ctx, res); err != nil {
		return err
	}

	stages := []struct {
		state State
		steps []Step
	}{
		{StateAccountSelect, []Step{
			{Name: "open account", Target: TargetAccountTile, Action: ActionClick, Settle: settleShort},
			{Name: "open status tool", Target: TargetStatusTool, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateServiceCategory, []Step{
			{Name: "pick electric service", Target: TargetElectricService, Action: ActionClick, Required: true, Settle: settleShort},
			{Name: "submit service category", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateRegionSelect, []Step{
			{Name: "pick region", Target: TargetRegionOption, Action: ActionClick, Settle: settleShort},
			{Name: "submit region", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateAdditionalService, []Step{
			{Name: "decline additional services", Target: TargetNoAdditional, Action: ActionClick, Settle: settleShort},
			{Name: "submit additional services", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateCustomerType, []Step{
			{Name: "pick business type", Target: TargetBusinessRadio, Action: ActionClick, Required: true, Settle: settleShort},
			{Name: "submit customer type", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateMasterAccount, []Step{
			{Name: "answer master account", Target: TargetMasterAccountNo, Action: ActionClick, Settle: settleShort},
			{Name: "submit master account", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateTaxIDAndRequestor, []Step{
			{Name: "fill tax id", Target: TargetTaxIDField, Action: ActionFill, Value: f.cfg.TaxID, Required: true, Settle: settleShort},
			{Name: "fill requestor name", Target: TargetRequestorName, Action: ActionFill, Value: f.cfg.RequestorName, Settle: settleShort},
			{Name: "submit requestor info", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StatePropertyUse, []Step{
			{Name: "pick property use", Target: TargetPropertyUseRadio, Action: ActionClick, Settle: settleShort},
			{Name: "mailing same as property", Target: TargetMailingSame, Action: ActionCheck, Settle: settleShort},
			{Name: "submit property use", Target: TargetContinue, Action: ActionClick, Required: true, Settle: settleLong},
		}},
		{StateConfirmProperty, []Step{
			{Name: "confirm property", Target: TargetConfirmProperty, Action: ActionClick, Required: true, Settle: settleLong, WaitFor: TargetAddressField},
		}},
	}

	for _, stage := range stages {
		if err := f.runState(ctx, res, stage.state, stage.steps); err != nil {
			return err
		}
	}
	return nil
}

// login handles the credentials page. A forced-cold re-entry on a still
// authenticated session usually short-circuits past the form, so a
// missing login form with a visible dashboard is tolerated.
func (f *Flow) login(ctx context.Context, res *LookupResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res.StatesVisited = append(res.StatesVisited, StateLogin)
	f.log.Printf("▶️ %s", StateLogin)

	if err := f.page.Goto(f.cfg.PortalURL); err != nil {
		return fmt.Errorf("login: navigation: %w", err)
	}
	f.page.WaitSettled(10 * time.Second)

	if out := f.exec.Execute(Step{Name: "dismiss cookie banner", Target: TargetCookieAccept, Action: ActionClick, Settle: settleShort}); out.Kind == StepSoft {
		f.log.Printf("  ℹ️ no cookie banner")
	}

	// A forced-cold entry on a live session lands on the dashboard, not
	// the login form. Peek costs nothing, so check that first instead
	// of waiting out every credentials-form strategy.
	if f.res.Peek(f.page, TargetDashboard) && !f.res.Peek(f.page, TargetUsername) {
		f.log.Printf("  ℹ️ session already authenticated, skipping credentials")
		return nil
	}
	if _, ok := f.res.Resolve(f.page, TargetUsername); !ok {
		return fmt.Errorf("login: credentials form not found")
	}

	steps := []Step{
		{Name: "fill username", Target: TargetUsername, Action: ActionFill, Value: f.cfg.Creds.Username, Required: true, Settle: settleShort},
		{Name: "fill password", Target: TargetPassword, Action: ActionFill, Value: f.cfg.Creds.Password, Required: true, Settle: settleShort},
		{Name: "submit login", Target: TargetSignIn, Action: ActionClick, Required: true, Settle: settleLong, WaitFor: TargetDashboard},
	}
	for _, st := range steps {
		if out := f.exec.Execute(st); out.Kind == StepHard {
			return fmt.Errorf("%s: %s: %w", StateLogin, st.Name, out.Err)
		}
	}
	return nil
}

// reenter uses the in-page "different address" shortcut to jump from a
// post-result page straight to address entry.
func (f *Flow) reenter(ctx context.Context, res *LookupResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.log.Printf("▶️ warm re-entry")

	step := Step{
		Name:     "check a different address",
		Target:   TargetDifferentAddress,
		Action:   ActionClick,
		Required: true,
		Settle:   settleLong,
		WaitFor:  TargetAddressField,
	}
	if out := f.exec.Execute(step); out.Kind == StepHard {
		return fmt.Errorf("warm re-entry: %w", out.Err)
	}
	return nil
}

func (f *Flow) addressEntry(ctx context.Context, res *LookupResult, address, unit string) error {
	steps := []Step{
		{Name: "fill service address", Target: TargetAddressField, Action: ActionFill, Value: address, Required: true, Settle: settleLong},
		{Name: "pick matching address", Target: TargetAddressOption, Arg: address, Action: ActionClick, Required: true, Settle: settleLong},
	}
	if unit != "" {
		steps = append(steps, Step{Name: "fill unit", Target: TargetUnitField, Action: ActionFill, Value: unit, Settle: settleShort})
	}
	return f.runState(ctx, res, StateAddressEntry, steps)
}

func (f *Flow) confirmSelection(ctx context.Context, res *LookupResult) error {
	steps := []Step{
		{Name: "confirm selection", Target: TargetConfirmSelection, Action: ActionClick, Required: true, Settle: settleLong},
	}
	return f.runState(ctx, res, StateConfirmSelection, steps)
}

// unitDisambiguation only engages when the portal interposes a unit
// picker; its absence is the common case and never fails the row.
func (f *Flow) unitDisambiguation(ctx context.Context, res *LookupResult, unit string) {
	if ctx.Err() != nil || unit == "" {
		return
	}
	if _, ok := f.res.Resolve(f.page, TargetUnitList); !ok {
		return
	}
	res.StatesVisited = append(res.StatesVisited, StateUnitDisambiguation)
	f.log.Printf("▶️ %s", StateUnitDisambiguation)

	out := f.exec.Execute(Step{Name: "pick unit", Target: TargetUnitOption, Arg: unit, Action: ActionClick, Settle: settleLong})
	if out.Kind != StepOK {
		f.log.Printf("  ⚠️ unit %q not selectable: %s", unit, out.Reason)
	}
}

// statusReadout extracts the two status fields independently; neither
// blocks the other, and each falls back to the sentinel on its own.
func (f *Flow) statusReadout(ctx context.Context, res *LookupResult) {
	if ctx.Err() != nil {
		return
	}
	res.StatesVisited = append(res.StatesVisited, StateStatusReadout)
	f.log.Printf("▶️ %s", StateStatusReadout)
	f.page.WaitSettled(10 * time.Second)

	if text, ok := f.readStatus(TargetMeterStatusValue, "Meter status"); ok {
		res.MeterStatus = text
	}
	if text, ok := f.readStatus(TargetPropertyStatus, "Property status"); ok {
		res.PropertyStatus = text
	}

	if res.Definitive() {
		now := time.Now()
		res.StatusCapturedAt = &now
		f.log.Printf("  ✅ meter=%q property=%q", res.MeterStatus, res.PropertyStatus)
	} else {
		f.log.Printf("  ⚠️ no status fields found on result page")
	}
}

func (f *Flow) readStatus(target SemanticTarget, label string) (string, bool) {
	handle, ok := f.res.ResolveWith(f.page, target, label)
	if !ok {
		return "", false
	}
	text, err := handle.Text()
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

// runState executes one state's steps. A hard failure aborts the row;
// soft failures are logged and the state continues.
func (f *Flow) runState(ctx context.Context, res *LookupResult, state State, steps []Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res.StatesVisited = append(res.StatesVisited, state)
	f.log.Printf("▶️ %s", state)

	for _, st := range steps {
		out := f.exec.Execute(st)
		switch out.Kind {
		case StepHard:
			return fmt.Errorf("%s: %s: %w", state, st.Name, out.Err)
		case StepSoft:
			f.log.Printf("  ⚠️ %s skipped: %s", st.Name, out.Reason)
		}
	}
	return nil
}

// Visited reports whether a result's row passed through a state.
func (r *LookupResult) Visited(state State) bool {
	for _, s := range r.StatesVisited {
		if s == state {
			return true
		}
	}
	return false
}
