package portal

import (
	"fmt"
	"strings"
	"time"
)

// SemanticTarget names an abstract element intent on the portal, e.g.
// "the business radio button". The resolver maps each target to an
// ordered list of concrete lookup strategies.
type SemanticTarget string

const (
	TargetCookieAccept     SemanticTarget = "cookie-accept"
	TargetUsername         SemanticTarget = "username-field"
	TargetPassword         SemanticTarget = "password-field"
	TargetSignIn           SemanticTarget = "sign-in-button"
	TargetDashboard        SemanticTarget = "account-dashboard"
	TargetAccountTile      SemanticTarget = "account-tile"
	TargetStatusTool       SemanticTarget = "status-tool-entry"
	TargetElectricService  SemanticTarget = "electric-service-radio"
	TargetRegionOption     SemanticTarget = "region-option"
	TargetNoAdditional     SemanticTarget = "no-additional-service"
	TargetBusinessRadio    SemanticTarget = "business-type-radio"
	TargetMasterAccountNo  SemanticTarget = "master-account-no"
	TargetTaxIDField       SemanticTarget = "tax-id-field"
	TargetRequestorName    SemanticTarget = "requestor-name-field"
	TargetPropertyUseRadio SemanticTarget = "property-use-radio"
	TargetMailingSame      SemanticTarget = "mailing-same-checkbox"
	TargetConfirmProperty  SemanticTarget = "confirm-property-button"
	TargetAddressField     SemanticTarget = "address-field"
	TargetAddressOption    SemanticTarget = "address-option"
	TargetUnitField        SemanticTarget = "unit-field"
	TargetConfirmSelection SemanticTarget = "confirm-selection-button"
	TargetUnitList         SemanticTarget = "unit-list"
	TargetUnitOption       SemanticTarget = "unit-option"
	TargetMeterStatusValue SemanticTarget = "meter-status-value"
	TargetPropertyStatus   SemanticTarget = "property-status-value"
	TargetDifferentAddress SemanticTarget = "different-address-link"
	TargetContinue         SemanticTarget = "continue-button"
	TargetStatusPanel      SemanticTarget = "status-panel"
)

// StrategyKind tags one concrete lookup approach.
type StrategyKind int

const (
	ByRole StrategyKind = iota
	BySelector
	ByText
	ByLabel
	ByAncestor
	ByProbe
)

// Strategy is one way to find a target on the live page. Strategies are
// evaluated in list order; the fields used depend on Kind. "${value}"
// in any field is replaced with per-row data before lookup.
type Strategy struct {
	Kind     StrategyKind
	Role     string // ByRole: ARIA role
	Name     string // ByRole: accessible name
	Selector string // BySelector, ByProbe: CSS selector
	Text     string // ByText, ByLabel, ByAncestor: text content / label
	Exact    bool   // ByText: exact match
	Ancestor string // ByAncestor: element climbed to from the text node
	Script   string // ByProbe: DOM script, must tag the element and return true
}

// Resolver finds portal elements by trying each of a target's
// strategies in order until one yields a visible element.
type Resolver struct {
	wait    time.Duration
	targets map[SemanticTarget][]Strategy
	log     Logger
}

// NewResolver builds a resolver over the default target catalog.
func NewResolver(log Logger) *Resolver {
	if log == nil {
		log = &SimpleLogger{}
	}
	return &Resolver{
		wait:    3 * time.Second,
		targets: defaultTargets(),
		log:     log,
	}
}

// Resolve returns the first visible handle for the target. The boolean
// is false when every strategy exhausted; that is a normal outcome,
// never an error.
func (r *Resolver) Resolve(page Page, target SemanticTarget) (Handle, bool) {
	return r.resolve(page, target, "")
}

// ResolveWith is Resolve for targets whose strategies embed row data,
// e.g. the autocomplete option matching the typed address.
func (r *Resolver) ResolveWith(page Page, target SemanticTarget, value string) (Handle, bool) {
	return r.resolve(page, target, value)
}

// Peek reports whether any of the target's strategies matches a
// visible element right now, without the per-strategy wait. Used for
// cheap page-state probes where a miss is the common case.
func (r *Resolver) Peek(page Page, target SemanticTarget) bool {
	for _, s := range r.targets[target] {
		handle, err := r.locate(page, s)
		if err != nil || handle == nil {
			continue
		}
		if handle.Visible() {
			return true
		}
	}
	return false
}

func (r *Resolver) resolve(page Page, target SemanticTarget, value string) (Handle, bool) {
	strategies, ok := r.targets[target]
	if !ok {
		r.log.Errorf("no strategies registered for target %q", target)
		return nil, false
	}

	for i, s := range strategies {
		handle, err := r.locate(page, interpolate(s, value))
		if err != nil || handle == nil {
			continue
		}
		if err := handle.WaitVisible(r.wait); err != nil {
			r.log.Printf("  strategy %d/%d missed for %s", i+1, len(strategies), target)
			continue
		}
		return handle, true
	}
	return nil, false
}

func (r *Resolver) locate(page Page, s Strategy) (Handle, error) {
	switch s.Kind {
	case ByRole:
		return page.ByRole(s.Role, s.Name), nil
	case BySelector:
		return page.BySelector(s.Selector), nil
	case ByText:
		return page.ByText(s.Text, s.Exact), nil
	case ByLabel:
		return page.ByLabel(s.Text), nil
	case ByAncestor:
		return page.ByAncestorOfText(s.Text, s.Ancestor), nil
	case ByProbe:
		found, err := page.Evaluate(s.Script)
		if err != nil {
			return nil, err
		}
		if ok, _ := found.(bool); !ok {
			return nil, fmt.Errorf("probe found nothing")
		}
		return page.BySelector(s.Selector), nil
	}
	return nil, fmt.Errorf("unknown strategy kind %d", s.Kind)
}

func interpolate(s Strategy, value string) Strategy {
	if value == "" {
		return s
	}
	s.Name = strings.ReplaceAll(s.Name, "${value}", value)
	s.Selector = strings.ReplaceAll(s.Selector, "${value}", value)
	s.Text = strings.ReplaceAll(s.Text, "${value}", value)
	s.Script = strings.ReplaceAll(s.Script, "${value}", value)
	return s
}

// statusProbe tags the sibling value node of a status label with a
// probe attribute so the resolver can address it with a plain selector.
// The portal renders status rows as <dt>label</dt><dd>value</dd> or as
// label/value span pairs depending on deployment.
const statusProbe = `() => {
	const label = '${value}'.toLowerCase();
	const nodes = document.querySelectorAll('dt, th, span, label, strong');
	for (const n of nodes) {
		if ((n.textContent || '').trim().toLowerCase() !== label) continue;
		const sibling = n.nextElementSibling;
		if (!sibling || !(sibling.textContent || '').trim()) continue;
		sibling.setAttribute('data-fpl-probe', label.replace(/\s+/g, '-'));
		return true;
	}
	return false;
}`

// defaultTargets is the catalog for the utility portal. The markup is
// unstable and inconsistently labeled across deployments, so every
// target carries redundant signals: role, CSS, text, structure.
func defaultTargets() map[SemanticTarget][]Strategy {
	return map[SemanticTarget][]Strategy{
		TargetCookieAccept: {
			{Kind: ByRole, Role: "button", Name: "Accept"},
			{Kind: BySelector, Selector: "#onetrust-accept-btn-handler"},
			{Kind: BySelector, Selector: "button[id*='accept'], button[class*='accept']"},
		},
		TargetUsername: {
			{Kind: ByLabel, Text: "Username"},
			{Kind: BySelector, Selector: "#loginUsername"},
			{Kind: BySelector, Selector: "input[name='username'], input[name='userId']"},
		},
		TargetPassword: {
			{Kind: ByLabel, Text: "Password"},
			{Kind: BySelector, Selector: "#loginPassword"},
			{Kind: BySelector, Selector: "input[type='password']"},
		},
		TargetSignIn: {
			{Kind: ByRole, Role: "button", Name: "Log In"},
			{Kind: ByRole, Role: "button", Name: "Sign In"},
			{Kind: BySelector, Selector: "button[type='submit']"},
		},
		TargetDashboard: {
			{Kind: BySelector, Selector: "[class*='dashboard'], [id*='dashboard']"},
			{Kind: ByText, Text: "My Account"},
		},
		TargetAccountTile: {
			{Kind: BySelector, Selector: "[class*='account-card'] a, [class*='accountTile']"},
			{Kind: ByRole, Role: "link", Name: "View account"},
		},
		TargetStatusTool: {
			{Kind: ByRole, Role: "link", Name: "Power & Meter Status"},
			{Kind: ByText, Text: "Meter Status"},
			{Kind: BySelector, Selector: "a[href*='meter-status'], a[href*='power-status']"},
		},
		TargetElectricService: {
			{Kind: ByRole, Role: "radio", Name: "Electric service"},
			{Kind: ByAncestor, Text: "Electric service", Ancestor: "label"},
			{Kind: BySelector, Selector: "input[type='radio'][value*='electric' i]"},
		},
		TargetRegionOption: {
			{Kind: ByRole, Role: "radio", Name: "Florida"},
			{Kind: ByAncestor, Text: "Florida", Ancestor: "label"},
			{Kind: BySelector, Selector: "input[type='radio'][name*='region' i]"},
		},
		TargetNoAdditional: {
			{Kind: ByRole, Role: "radio", Name: "No"},
			{Kind: ByAncestor, Text: "No additional services", Ancestor: "label"},
			{Kind: BySelector, Selector: "input[type='radio'][value='no' i]"},
		},
		TargetBusinessRadio: {
			{Kind: ByRole, Role: "radio", Name: "Business"},
			{Kind: ByAncestor, Text: "Business", Ancestor: "label"},
			{Kind: BySelector, Selector: "input[type='radio'][value*='business' i]"},
		},
		TargetMasterAccountNo: {
			{Kind: ByRole, Role: "radio", Name: "No"},
			{Kind: ByAncestor, Text: "No", Ancestor: "label"},
			{Kind: BySelector, Selector: "input[type='radio'][name*='master' i][value='no' i]"},
		},
		TargetTaxIDField: {
			{Kind: ByLabel, Text: "Tax ID"},
			{Kind: BySelector, Selector: "input[name*='taxId' i], input[id*='taxId' i]"},
			{Kind: BySelector, Selector: "input[name*='tin' i]"},
		},
		TargetRequestorName: {
			{Kind: ByLabel, Text: "Requestor name"},
			{Kind: BySelector, Selector: "input[name*='requestor' i]"},
		},
		TargetPropertyUseRadio: {
			{Kind: ByRole, Role: "radio", Name: "Rental property"},
			{Kind: ByAncestor, Text: "Rental property", Ancestor: "label"},
			{Kind: BySelector, Selector: "input[type='radio'][name*='propertyUse' i]"},
		},
		TargetMailingSame: {
			{Kind: ByRole, Role: "checkbox", Name: "Same as property address"},
			{Kind: BySelector, Selector: "input[type='checkbox'][name*='mailing' i]"},
		},
		TargetConfirmProperty: {
			{Kind: ByRole, Role: "button", Name: "Confirm"},
			{Kind: ByText, Text: "Confirm", Exact: true},
			{Kind: BySelector, Selector: "button[class*='confirm'], .btn-primary"},
		},
		TargetAddressField: {
			{Kind: ByLabel, Text: "Service address"},
			{Kind: BySelector, Selector: "input[name*='address' i][type='text']"},
			{Kind: BySelector, Selector: "input[placeholder*='address' i]"},
		},
		TargetAddressOption: {
			{Kind: ByRole, Role: "option", Name: "${value}"},
			{Kind: ByText, Text: "${value}"},
			{Kind: BySelector, Selector: "[class*='autocomplete'] li, [role='listbox'] [role='option']"},
		},
		TargetUnitField: {
			{Kind: ByLabel, Text: "Apt/Unit"},
			{Kind: BySelector, Selector: "input[name*='unit' i], input[name*='apt' i]"},
		},
		TargetConfirmSelection: {
			{Kind: ByRole, Role: "button", Name: "Confirm selection"},
			{Kind: ByRole, Role: "button", Name: "Continue"},
			{Kind: BySelector, Selector: "button[type='submit'], .btn-primary"},
		},
		TargetUnitList: {
			{Kind: BySelector, Selector: "[class*='unit-list'], [id*='unitList']"},
			{Kind: ByText, Text: "Select your unit"},
		},
		TargetUnitOption: {
			{Kind: ByRole, Role: "option", Name: "${value}"},
			{Kind: ByText, Text: "${value}", Exact: true},
			{Kind: BySelector, Selector: "[class*='unit-list'] li"},
		},
		TargetStatusPanel: {
			{Kind: BySelector, Selector: "[class*='status-result'], [id*='statusResult']"},
			{Kind: ByText, Text: "Status results"},
		},
		TargetMeterStatusValue: {
			{Kind: BySelector, Selector: "[data-testid='meter-status'], [id*='meterStatus']"},
			{Kind: ByAncestor, Text: "Meter status", Ancestor: "div"},
			{Kind: ByProbe, Script: statusProbe, Selector: "[data-fpl-probe='meter-status']"},
		},
		TargetPropertyStatus: {
			{Kind: BySelector, Selector: "[data-testid='property-status'], [id*='propertyStatus']"},
			{Kind: ByAncestor, Text: "Property status", Ancestor: "div"},
			{Kind: ByProbe, Script: statusProbe, Selector: "[data-fpl-probe='property-status']"},
		},
		TargetDifferentAddress: {
			{Kind: ByRole, Role: "link", Name: "Check a different address"},
			{Kind: ByText, Text: "different address"},
			{Kind: BySelector, Selector: "a[href*='different'], button[class*='another-address']"},
		},
		TargetContinue: {
			{Kind: ByRole, Role: "button", Name: "Continue"},
			{Kind: ByText, Text: "Continue", Exact: true},
			{Kind: BySelector, Selector: "button[type='submit'], .btn-primary"},
		},
	}
}
