// Package browser abstracts the automation session the scrapers drive:
// navigation, element queries, clicks and scrolling.
package browser

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by sessions that cannot perform an operation,
// such as XPath queries on a static document.
var ErrUnsupported = errors.New("operation not supported by this session")

// ErrNotClickable is returned when clicking an element has no effect the
// session can reproduce.
var ErrNotClickable = errors.New("element is not clickable")

// Scope is a page or element that can be queried for descendants.
// Queries return the current matches and never wait.
type Scope interface {
	Elements(ctx context.Context, css string) ([]Element, error)
	ElementsX(ctx context.Context, xpath string) ([]Element, error)
}

// Element is a node of the rendered page
type Element interface {
	Scope
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
}

// Page is one browser tab
type Page interface {
	Scope
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	URL() string
	ScrollToBottom(ctx context.Context) error
	Close() error
}

// Session owns the browser process or connection
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// SessionFactory opens a new session for one run
type SessionFactory func(ctx context.Context) (Session, error)
