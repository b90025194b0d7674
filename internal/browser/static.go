package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/pharmacrawler/helpers"
)

// FetchFunc retrieves a page body as UTF-8
type FetchFunc func(ctx context.Context, url string) (io.Reader, error)

// StaticSession renders pages from their server HTML without running
// scripts. It serves storefronts whose pagination is made of plain links.
type StaticSession struct {
	fetch FetchFunc
}

// NewStaticSession creates a static session fetching with browser-like headers
func NewStaticSession() *StaticSession {
	return &StaticSession{fetch: helpers.FetchHTML}
}

// NewPage opens an empty page
func (s *StaticSession) NewPage(ctx context.Context) (Page, error) {
	return &StaticPage{fetch: s.fetch}, nil
}

// Close releases nothing; static sessions hold no process
func (s *StaticSession) Close() error {
	return nil
}

// StaticPage is a goquery document standing in for a rendered tab
type StaticPage struct {
	fetch FetchFunc
	doc   *goquery.Document
	url   *url.URL
}

// ParsePage builds a page from HTML, for documents obtained elsewhere
func ParsePage(r io.Reader, pageURL string) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page URL: %w", err)
	}
	return &StaticPage{doc: doc, url: u}, nil
}

// Navigate fetches rawURL, resolved against the current page, and replaces the document
func (p *StaticPage) Navigate(ctx context.Context, rawURL string) error {
	if p.fetch == nil {
		return ErrUnsupported
	}
	target, err := p.resolve(rawURL)
	if err != nil {
		return err
	}

	body, err := p.fetch(ctx, target.String())
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("parse HTML: %w", err)
	}

	p.doc = doc
	p.url = target
	return nil
}

// Reload fetches the current URL again
func (p *StaticPage) Reload(ctx context.Context) error {
	if p.url == nil {
		return fmt.Errorf("reload before navigation")
	}
	return p.Navigate(ctx, p.url.String())
}

// URL returns the current page URL
func (p *StaticPage) URL() string {
	if p.url == nil {
		return ""
	}
	return p.url.String()
}

// ScrollToBottom is a no-op; the whole document is already present
func (p *StaticPage) ScrollToBottom(ctx context.Context) error {
	return nil
}

// Close does nothing
func (p *StaticPage) Close() error {
	return nil
}

// Elements returns the elements matching css
func (p *StaticPage) Elements(ctx context.Context, css string) ([]Element, error) {
	if p.doc == nil {
		return nil, nil
	}
	return p.wrap(p.doc.Selection, css)
}

// ElementsX is not supported on static documents
func (p *StaticPage) ElementsX(ctx context.Context, xpath string) ([]Element, error) {
	return nil, ErrUnsupported
}

func (p *StaticPage) wrap(scope *goquery.Selection, css string) ([]Element, error) {
	if strings.TrimSpace(css) == "" {
		return nil, fmt.Errorf("empty selector")
	}
	var out []Element
	scope.Find(css).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &staticElement{page: p, sel: s})
	})
	return out, nil
}

func (p *StaticPage) resolve(rawURL string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse URL %q: %w", rawURL, err)
	}
	if p.url == nil {
		return ref, nil
	}
	return p.url.ResolveReference(ref), nil
}

type staticElement struct {
	page *StaticPage
	sel  *goquery.Selection
}

func (e *staticElement) Elements(ctx context.Context, css string) ([]Element, error) {
	return e.page.wrap(e.sel, css)
}

func (e *staticElement) ElementsX(ctx context.Context, xpath string) ([]Element, error) {
	return nil, ErrUnsupported
}

func (e *staticElement) Text(ctx context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *staticElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := e.sel.Attr(name)
	return value, ok, nil
}

func (e *staticElement) Visible(ctx context.Context) (bool, error) {
	if _, hidden := e.sel.Attr("hidden"); hidden {
		return false, nil
	}
	if kind, _ := e.sel.Attr("type"); kind == "hidden" {
		return false, nil
	}
	style, _ := e.sel.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false, nil
	}
	return true, nil
}

// Click follows href or data-href, the only interaction a static page can replay
func (e *staticElement) Click(ctx context.Context) error {
	for _, attr := range []string{"href", "data-href"} {
		if target, ok := e.sel.Attr(attr); ok && strings.TrimSpace(target) != "" && !strings.HasPrefix(target, "#") && !strings.HasPrefix(target, "javascript:") {
			return e.page.Navigate(ctx, target)
		}
	}
	return ErrNotClickable
}
