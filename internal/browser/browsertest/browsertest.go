// Package browsertest provides a scriptable in-memory page for tests that
// need clicks, reloads and DOM mutations without a browser.
package browsertest

import (
	"context"
	"sync"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
)

// Node is a fake element. Children are looked up by the exact selector
// string, so tests declare what each query returns.
type Node struct {
	mu        sync.Mutex
	text      string
	attrs     map[string]string
	hidden    bool
	children  map[string][]*Node
	xchildren map[string][]*Node
	clicks    int

	// OnClick runs when the node is clicked; its error is returned by Click
	OnClick func() error
}

// NewNode creates a node with text and attribute name/value pairs
func NewNode(text string, attrs ...string) *Node {
	n := &Node{
		text:      text,
		attrs:     make(map[string]string),
		children:  make(map[string][]*Node),
		xchildren: make(map[string][]*Node),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.attrs[attrs[i]] = attrs[i+1]
	}
	return n
}

// Add appends children returned for css and returns n for chaining
func (n *Node) Add(css string, children ...*Node) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children[css] = append(n.children[css], children...)
	return n
}

// AddX appends children returned for an XPath query
func (n *Node) AddX(xpath string, children ...*Node) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.xchildren[xpath] = append(n.xchildren[xpath], children...)
	return n
}

// Set replaces the children returned for css
func (n *Node) Set(css string, children ...*Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children[css] = children
}

// Remove drops every child registered for css
func (n *Node) Remove(css string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.children, css)
}

// Hide marks the node as not visible
func (n *Node) Hide() *Node {
	n.hidden = true
	return n
}

// Clicks returns how many times the node was clicked
func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

func (n *Node) Elements(ctx context.Context, css string) ([]browser.Element, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return wrap(n.children[css]), nil
}

func (n *Node) ElementsX(ctx context.Context, xpath string) ([]browser.Element, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return wrap(n.xchildren[xpath]), nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	return n.text, nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := n.attrs[name]
	return value, ok, nil
}

func (n *Node) Visible(ctx context.Context) (bool, error) {
	return !n.hidden, nil
}

func (n *Node) Click(ctx context.Context) error {
	n.mu.Lock()
	n.clicks++
	onClick := n.OnClick
	n.mu.Unlock()
	if onClick != nil {
		return onClick()
	}
	return nil
}

func wrap(nodes []*Node) []browser.Element {
	out := make([]browser.Element, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node)
	}
	return out
}

// Page is a fake tab whose document is Root
type Page struct {
	Root *Node

	mu          sync.Mutex
	url         string
	navigations []string
	reloads     int
	scrolls     int
	closed      bool

	// NavigateErr is returned by every Navigate call when set
	NavigateErr error
	// OnReload runs on every Reload
	OnReload func()
}

// NewPage creates a page with an empty root
func NewPage() *Page {
	return &Page{Root: NewNode("")}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.url = url
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.reloads++
	onReload := p.OnReload
	p.mu.Unlock()
	if onReload != nil {
		onReload()
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Page) Elements(ctx context.Context, css string) ([]browser.Element, error) {
	return p.Root.Elements(ctx, css)
}

func (p *Page) ElementsX(ctx context.Context, xpath string) ([]browser.Element, error) {
	return p.Root.ElementsX(ctx, xpath)
}

// Navigations returns the URLs passed to Navigate
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Reloads returns the number of Reload calls
func (p *Page) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// Scrolls returns the number of ScrollToBottom calls
func (p *Page) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}

// Closed reports whether Close was called
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Session hands out a single Page
type Session struct {
	Page    *Page
	PageErr error

	mu     sync.Mutex
	closed int
}

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	if s.PageErr != nil {
		return nil, s.PageErr
	}
	return s.Page, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// CloseCount returns how many times Close was called
func (s *Session) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
