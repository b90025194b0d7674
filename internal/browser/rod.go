package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/dealmungchi/pharmacrawler/helpers"
	"github.com/dealmungchi/pharmacrawler/logger"
)

// RodOptions configures the headless Chrome launched for a run
type RodOptions struct {
	Bin       string
	Headless  bool
	NoSandbox bool
}

// RodSession drives a Chrome instance through the DevTools protocol
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	log      *logger.Logger
}

// NewRodSession launches Chrome and connects to it
func NewRodSession(ctx context.Context, opts RodOptions) (*RodSession, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Leakless(false)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	log := logger.ForComponent("browser")
	log.Debug().Str("control_url", controlURL).Msg("Browser connected")

	return &RodSession{launcher: l, browser: b, log: log}, nil
}

// NewPage opens a blank tab with a desktop viewport and user agent
func (s *RodSession) NewPage(ctx context.Context) (Page, error) {
	p, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1366,
		Height:            900,
		DeviceScaleFactor: 1,
	}); err != nil {
		s.log.Debug().Err(err).Msg("Failed to set viewport")
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      helpers.RandomUserAgent(),
		AcceptLanguage: "es-CL,es;q=0.9",
	}); err != nil {
		s.log.Debug().Err(err).Msg("Failed to set user agent")
	}
	return &rodPage{page: p}, nil
}

// Close shuts the browser down and removes its profile
func (s *RodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) Reload(ctx context.Context) error {
	page := p.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

func (p *rodPage) Elements(ctx context.Context, css string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(css)
	return wrapRod(els), err
}

func (p *rodPage) ElementsX(ctx context.Context, xpath string) ([]Element, error) {
	els, err := p.page.Context(ctx).ElementsX(xpath)
	return wrapRod(els), err
}

type rodElement struct {
	el *rod.Element
}

func wrapRod(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out
}

func (e *rodElement) Elements(ctx context.Context, css string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(css)
	return wrapRod(els), err
}

func (e *rodElement) ElementsX(ctx context.Context, xpath string) ([]Element, error) {
	els, err := e.el.Context(ctx).ElementsX(xpath)
	return wrapRod(els), err
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Click(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}
