// Package signals describes what the browser reports about a page load and
// the interactions that follow it. Every matcher treats missing data as a
// non-match.
package signals

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	productPath        = regexp.MustCompile(`(?i)/products/`)
	nonCommercialPath  = regexp.MustCompile(`(?i)/blogs|/about|/home|/pages/`)
	nonCommerceClick   = regexp.MustCompile(`(?i)/blogs|/pages|/contact`)
	searchReferrer     = regexp.MustCompile(`(?i)google|bing\.`)
	socialReferrer     = regexp.MustCompile(`(?i)pinterest|reddit|instagram|tiktok`)
	mobileUserAgent    = regexp.MustCompile(`(?i)Mobi|Android`)
	facebookCampaignID = "utm_source=facebook"
)

// Snapshot is the page-load signal set. It does not change for the lifetime
// of a page.
type Snapshot struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	Customer  bool   `json:"customer"`
}

// NewSnapshot builds a snapshot, deriving the path from rawURL. An
// unparsable URL leaves the path empty.
func NewSnapshot(rawURL, referrer, userAgent string, customer bool) Snapshot {
	s := Snapshot{URL: rawURL, Referrer: referrer, UserAgent: userAgent, Customer: customer}
	if u, err := url.Parse(rawURL); err == nil {
		s.Path = u.Path
	}
	return s
}

func (s Snapshot) Mobile() bool          { return mobileUserAgent.MatchString(s.UserAgent) }
func (s Snapshot) ProductPage() bool     { return productPath.MatchString(s.Path) }
func (s Snapshot) NonCommercial() bool   { return nonCommercialPath.MatchString(s.Path) }
func (s Snapshot) NonCommerceArea() bool { return nonCommerceClick.MatchString(s.Path) }
func (s Snapshot) SearchReferral() bool  { return searchReferrer.MatchString(s.Referrer) }
func (s Snapshot) SocialReferral() bool  { return socialReferrer.MatchString(s.Referrer) }

func (s Snapshot) FacebookCampaign() bool {
	return strings.Contains(s.Referrer, facebookCampaignID)
}

// Element identifies a DOM element. The reporting side resolves the nearest
// relevant ancestor before sending it.
type Element struct {
	ID         string   `json:"id"`
	Tag        string   `json:"tag"`
	Classes    []string `json:"classes,omitempty"`
	Name       string   `json:"name,omitempty"`
	Type       string   `json:"type,omitempty"`
	FormAction string   `json:"form_action,omitempty"` // action of the enclosing form
}

var productTags = map[string]bool{"img": true, "button": true, "select": true}

var productClasses = map[string]bool{
	"product__price":    true,
	"product-form":      true,
	"product__title":    true,
	"product-card":      true,
	"grid-product":      true,
	"product-grid-item": true,
	"product-tile":      true,
}

// ProductRelated reports whether hovering the element counts as product
// interest.
func (e Element) ProductRelated() bool {
	if e.ID == "" {
		return false
	}
	if productTags[strings.ToLower(e.Tag)] {
		return true
	}
	for _, c := range e.Classes {
		if productClasses[c] {
			return true
		}
	}
	return false
}

// AddToCart reports whether clicking the element adds to the cart.
func (e Element) AddToCart() bool {
	if strings.EqualFold(e.Tag, "button") && e.Name == "add" {
		return true
	}
	return strings.Contains(e.FormAction, "/cart/add") && e.Type == "submit"
}

// VariantSelector reports whether the element selects a product variant.
func (e Element) VariantSelector() bool {
	return e.Name != "" && strings.Contains(e.Name, "variant")
}

// EventKind is a DOM event type.
type EventKind string

const (
	MouseMove  EventKind = "mousemove"
	Click      EventKind = "click"
	MouseOver  EventKind = "mouseover"
	MouseLeave EventKind = "mouseleave"
	Scroll     EventKind = "scroll"
)

// Event is a DOM interaction on a page.
type Event struct {
	Kind           EventKind `json:"kind"`
	Target         *Element  `json:"target,omitempty"`
	ScrollY        float64   `json:"scroll_y,omitempty"`
	ViewportHeight float64   `json:"viewport_height,omitempty"`
	PageHeight     float64   `json:"page_height,omitempty"`
}

// ScrollFraction returns how far down the page the bottom of the viewport
// is. It is false when the page height is unknown.
func (e Event) ScrollFraction() (float64, bool) {
	if e.PageHeight <= 0 {
		return 0, false
	}
	return (e.ScrollY + e.ViewportHeight) / e.PageHeight, true
}
