package rules

import (
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/session"
	"github.com/MikeSquared-Agency/ghostrev/internal/signals"
)

// Immediate rules run once, synchronously, when a page loads.
var Immediate = []Rule{
	{
		Guard: PerPage, Label: "Landed on product page", Delta: 2,
		When: func(c Context) bool { return c.Signals.ProductPage() },
	},
	{
		Guard: PerPage, Label: "Landed on non-commercial page", Delta: -2,
		When: func(c Context) bool { return c.Signals.NonCommercial() },
	},
	{
		Key: session.FlagReferrer, Guard: OncePerCategory, Label: "Referrer is search engine", Delta: 2,
		When: func(c Context) bool { return c.Signals.SearchReferral() },
	},
	{
		Key: session.FlagReferrer, Guard: OncePerCategory, Label: "Referrer is low-intent social", Delta: -2,
		When: func(c Context) bool { return c.Signals.SocialReferral() },
	},
	{
		Key: session.FlagDevice, Guard: OncePerCategory, Label: "Mobile session", Delta: -1,
		When: func(c Context) bool { return c.Signals.Mobile() },
	},
	{
		Key: session.FlagDevice, Guard: OncePerCategory, Label: "Desktop session", Delta: 1,
		When: func(c Context) bool { return !c.Signals.Mobile() },
	},
	{
		Key: session.FlagUTM, Guard: OncePerSession, Label: "Facebook UTM tag detected", Delta: -2,
		When: func(c Context) bool { return c.Signals.FacebookCampaign() },
	},
	{
		Key: session.FlagLogin, Guard: OncePerSession, Label: "Logged-in customer", Delta: 5,
		When: func(c Context) bool { return c.Signals.Customer },
	},
}

// Trigger says when a deferred rule is evaluated.
type Trigger int

const (
	// OnLoad rules run after the immediate pass and the immediate
	// monetization check.
	OnLoad Trigger = iota
	// AfterDelay rules run once, Delay after the page loaded.
	AfterDelay
	// OnEvent rules run on every DOM event of kind Event.
	OnEvent
)

// Deferred is a rule plus the moment it is evaluated.
type Deferred struct {
	Rule
	Trigger Trigger
	Delay   time.Duration
	Event   signals.EventKind
}

const (
	EngagementDelay = 30 * time.Second
	DwellDelay      = 60 * time.Second
	FastScrollLimit = 5 * time.Second
	FastScrollDepth = 0.95
	HoverDwell      = time.Second
)

// DeferredRules is interpreted by the page scheduler.
var DeferredRules = []Deferred{
	{
		Trigger: OnLoad,
		Rule: Rule{
			Key: session.FlagSkips, Guard: OncePerSession, Label: "Skipped 3+ pages in < 20s", Delta: -3,
			When: func(c Context) bool { return RapidSkip(c.History) },
		},
	},
	{
		Trigger: AfterDelay, Delay: EngagementDelay,
		Rule: Rule{
			Key: session.FlagEngaged30s, Guard: OncePerSession, Label: "Stayed on page > 30s with engagement", Delta: 1,
			When: func(c Context) bool { return c.Hovered > 0 || c.Interacted },
		},
	},
	{
		Trigger: AfterDelay, Delay: DwellDelay,
		Rule: Rule{
			Key: session.FlagProductDwell60s, Guard: OncePerSession, Label: "Stayed on product page > 60s", Delta: 2,
			When: func(c Context) bool { return c.Signals.ProductPage() },
		},
	},
	{
		Trigger: AfterDelay, Delay: DwellDelay,
		Rule: Rule{
			Key: session.FlagIdle60s, Guard: OncePerSession, Label: "No hover or interaction after 60s", Delta: -3,
			When: func(c Context) bool { return c.Hovered == 0 },
		},
	},
	{
		Trigger: OnEvent, Event: signals.Scroll,
		Rule: Rule{
			Key: session.FlagFastScroll, Guard: OncePerSession, Label: "Rapid scroll down entire page in <5s", Delta: -2,
			When: func(c Context) bool {
				frac, ok := c.Event.ScrollFraction()
				return ok && frac > FastScrollDepth && c.Elapsed() < FastScrollLimit
			},
		},
	},
	{
		Trigger: OnEvent, Event: signals.Click,
		Rule: Rule{
			Key: session.FlagNonCommerceClick, Guard: OncePerSession, Label: "Clicked on non-commerce page", Delta: -2,
			When: func(c Context) bool { return c.Signals.NonCommerceArea() },
		},
	},
}

// HoverRule scores a sustained hover. The page's hover set guards it, so it
// carries no once-key.
var HoverRule = Rule{
	Guard: PerPage, Label: "Hovered on product-related element for >1s", Delta: 2,
	When: func(c Context) bool {
		return c.Event.Target != nil && c.Event.Target.ProductRelated()
	},
}

// Select returns the rules of the given trigger, and for OnEvent only those
// listening to kind.
func Select(table []Deferred, trigger Trigger, kind signals.EventKind) []Rule {
	var out []Rule
	for _, d := range table {
		if d.Trigger != trigger {
			continue
		}
		if trigger == OnEvent && d.Event != kind {
			continue
		}
		out = append(out, d.Rule)
	}
	return out
}
