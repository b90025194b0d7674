// Package locator resolves ordered chains of candidate element locators
// against a live page, so a single broken selector degrades a scrape instead
// of failing it.
package locator

import (
	"context"
	"strings"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/logger"
)

// Locator is one way of finding an element. An empty CSS and XPath means
// the scope element itself; Attr names the attribute to read, or "" for text.
type Locator struct {
	CSS   string `yaml:"css,omitempty"`
	XPath string `yaml:"xpath,omitempty"`
	Attr  string `yaml:"attr,omitempty"`
}

// CSS is shorthand for a text-reading CSS locator
func CSS(selector string) Locator {
	return Locator{CSS: selector}
}

// CSSAttr is shorthand for an attribute-reading CSS locator
func CSSAttr(selector, attr string) Locator {
	return Locator{CSS: selector, Attr: attr}
}

// SelfAttr reads an attribute of the scope element itself
func SelfAttr(attr string) Locator {
	return Locator{Attr: attr}
}

// String describes the locator for logs
func (l Locator) String() string {
	var s string
	switch {
	case l.CSS != "":
		s = "css:" + l.CSS
	case l.XPath != "":
		s = "xpath:" + l.XPath
	default:
		s = "self"
	}
	if l.Attr != "" {
		s += "@" + l.Attr
	}
	return s
}

// TextFallback matches elements under Within whose visible text contains
// one of Phrases, compared case-insensitively.
type TextFallback struct {
	Within  string
	Phrases []string
}

// Chain is the ordered candidate list for one logical target
type Chain struct {
	Target     string
	Candidates []Locator
	Text       *TextFallback
	// Visible skips elements the page reports as hidden
	Visible bool
}

// Empty reports whether the chain has nothing to try
func (c Chain) Empty() bool {
	return len(c.Candidates) == 0 && c.Text == nil
}

// Match is a resolved element and the locator that found it
type Match struct {
	Element browser.Element
	Locator Locator
	ByText  bool
}

// Resolver walks chains against a scope. Its methods never return errors:
// a chain with no match is a valid outcome the caller must handle.
type Resolver struct {
	log *logger.Logger
}

// NewResolver creates a resolver logging through log
func NewResolver(log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{log: log}
}

// Resolve returns the first element found by the chain
func (r *Resolver) Resolve(ctx context.Context, scope browser.Scope, chain Chain) (Match, bool) {
	for _, loc := range chain.Candidates {
		els := r.query(ctx, scope, chain, loc)
		if len(els) > 0 {
			return Match{Element: els[0], Locator: loc}, true
		}
	}
	if chain.Text != nil {
		if el, ok := r.byText(ctx, scope, chain); ok {
			return Match{Element: el, ByText: true}, true
		}
	}
	r.log.Debug().Str("target", chain.Target).Msg("No locator matched")
	return Match{}, false
}

// ResolveAll returns every element of the first candidate that matches at least one
func (r *Resolver) ResolveAll(ctx context.Context, scope browser.Scope, chain Chain) ([]browser.Element, Locator, bool) {
	for _, loc := range chain.Candidates {
		if els := r.query(ctx, scope, chain, loc); len(els) > 0 {
			return els, loc, true
		}
	}
	r.log.Debug().Str("target", chain.Target).Msg("No locator matched")
	return nil, Locator{}, false
}

// Value returns the first non-empty text or attribute value the chain yields
func (r *Resolver) Value(ctx context.Context, scope browser.Scope, chain Chain) (string, bool) {
	for _, loc := range chain.Candidates {
		for _, el := range r.query(ctx, scope, chain, loc) {
			if value := r.read(ctx, el, loc.Attr); value != "" {
				return value, true
			}
		}
	}
	return "", false
}

// Click resolves the chain and clicks the match. It reports whether a click
// happened; waiting for its effect is the caller's job.
func (r *Resolver) Click(ctx context.Context, scope browser.Scope, chain Chain) bool {
	match, ok := r.Resolve(ctx, scope, chain)
	if !ok {
		return false
	}
	if err := match.Element.Click(ctx); err != nil {
		r.log.Debug().Err(err).Str("target", chain.Target).Str("locator", match.Locator.String()).Msg("Click failed")
		return false
	}
	r.log.Debug().Str("target", chain.Target).Str("locator", match.Locator.String()).Bool("by_text", match.ByText).Msg("Clicked")
	return true
}

func (r *Resolver) query(ctx context.Context, scope browser.Scope, chain Chain, loc Locator) []browser.Element {
	var (
		els []browser.Element
		err error
	)
	switch {
	case loc.CSS != "":
		els, err = scope.Elements(ctx, loc.CSS)
	case loc.XPath != "":
		els, err = scope.ElementsX(ctx, loc.XPath)
	default:
		el, ok := scope.(browser.Element)
		if !ok {
			return nil
		}
		els = []browser.Element{el}
	}
	if err != nil {
		r.log.Debug().Err(err).Str("target", chain.Target).Str("locator", loc.String()).Msg("Locator query failed")
		return nil
	}
	if chain.Visible {
		els = visibleOnly(ctx, els)
	}
	return els
}

func (r *Resolver) byText(ctx context.Context, scope browser.Scope, chain Chain) (browser.Element, bool) {
	within := chain.Text.Within
	if within == "" {
		within = "button, a"
	}
	els, err := scope.Elements(ctx, within)
	if err != nil {
		return nil, false
	}
	for _, el := range visibleOnly(ctx, els) {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		text = strings.ToLower(strings.Join(strings.Fields(text), " "))
		if text == "" {
			continue
		}
		for _, phrase := range chain.Text.Phrases {
			if strings.Contains(text, strings.ToLower(phrase)) {
				return el, true
			}
		}
	}
	return nil, false
}

func (r *Resolver) read(ctx context.Context, el browser.Element, attr string) string {
	if attr == "" {
		text, err := el.Text(ctx)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}
	value, ok, err := el.Attribute(ctx, attr)
	if err != nil || !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func visibleOnly(ctx context.Context, els []browser.Element) []browser.Element {
	out := els[:0:0]
	for _, el := range els {
		if visible, err := el.Visible(ctx); err == nil && visible {
			out = append(out, el)
		}
	}
	return out
}
