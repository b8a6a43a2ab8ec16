// Package browser drives a headless Chromium through go-rod and exposes it as
// a research browsing session with a stack of tabs.
package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/scrape"
)

// ErrNoIsolatedContext is returned when closing a tab that was never opened.
var ErrNoIsolatedContext = eris.New("browser: no isolated context open")

const (
	resultsWait = 10 * time.Second
	settleDelay = 2 * time.Second
)

const stripScriptsJS = `() => {
	for (const tag of ['script', 'style', 'noscript']) {
		for (const el of Array.from(document.getElementsByTagName(tag))) el.remove();
	}
	return document.body ? document.body.innerText : '';
}`

const bodyTextJS = `() => document.body ? document.body.innerText : ''`

const googleLinksJS = `() => Array.from(document.querySelectorAll('div.g a h3, #search a h3'))
	.map(h => { const a = h.closest('a'); return a ? a.href : ''; })
	.filter(Boolean)`

const ddgLinksJS = `() => Array.from(document.querySelectorAll('a.result__a'))
	.map(a => a.getAttribute('href') || '')
	.filter(Boolean)`

const logoCandidatesJS = `() => {
	const out = [];
	const push = v => { if (v) out.push(v); };
	document.querySelectorAll('img[alt*="logo" i], img[class*="logo" i], img[src*="logo" i]')
		.forEach(img => push(img.getAttribute('src')));
	const og = document.querySelector('meta[property="og:image"]');
	if (og) push(og.getAttribute('content'));
	document.querySelectorAll('link[rel*="apple-touch-icon"], link[rel*="icon"]')
		.forEach(l => push(l.getAttribute('href')));
	return out;
}`

// Config controls how the browser is launched.
type Config struct {
	// Bin is the Chromium binary; empty lets rod download or find one.
	Bin string
	// ControlURL attaches to an already running browser instead of launching.
	ControlURL        string
	Headless          bool
	NavigationTimeout time.Duration
}

// RodSession is a browsing session backed by one browser process. It is
// owned by a single research run and is not safe for concurrent use.
type RodSession struct {
	cfg      Config
	browser  *rod.Browser
	launcher *launcher.Launcher
	tabs     []*rod.Page

	closeOnce sync.Once
	closeErr  error
}

var _ evidence.Session = (*RodSession)(nil)

// Launch starts (or attaches to) a browser and opens the base tab.
func Launch(ctx context.Context, cfg Config) (*RodSession, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	s := &RodSession{cfg: cfg}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, eris.Wrap(err, "browser: launch")
		}
		s.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		s.killLauncher()
		return nil, eris.Wrap(err, "browser: connect")
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = s.Close()
		return nil, eris.Wrap(err, "browser: open base tab")
	}
	s.tabs = append(s.tabs, page)

	zap.L().Info("browser: session started",
		zap.Bool("headless", cfg.Headless),
		zap.Bool("attached", cfg.ControlURL != ""),
	)
	return s, nil
}

func (s *RodSession) current() (*rod.Page, error) {
	if len(s.tabs) == 0 {
		return nil, eris.New("browser: session closed")
	}
	return s.tabs[len(s.tabs)-1], nil
}

// Depth is the number of open isolated contexts.
func (s *RodSession) Depth() int {
	if len(s.tabs) == 0 {
		return 0
	}
	return len(s.tabs) - 1
}

func (s *RodSession) navigate(ctx context.Context, page *rod.Page, target string) (*rod.Page, error) {
	p := page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	if err := p.Navigate(target); err != nil {
		return nil, eris.Wrapf(err, "browser: navigate %s", target)
	}
	if err := p.WaitLoad(); err != nil {
		zap.L().Debug("browser: wait load", zap.String("url", target), zap.Error(err))
	}
	return p, nil
}

// Search opens the engine's results page for query in the current tab and
// returns the visible page text plus the top result links.
func (s *RodSession) Search(ctx context.Context, engine model.Engine, query string) evidence.SearchResult {
	page, err := s.current()
	if err != nil {
		return evidence.SearchResult{Err: err}
	}
	p, err := s.navigate(ctx, page, SearchURL(engine, query))
	if err != nil {
		return evidence.SearchResult{Err: err}
	}

	linksJS := googleLinksJS
	if engine == model.EngineSecondary {
		linksJS = ddgLinksJS
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, resultsWait)
		if _, err := p.Context(waitCtx).Element("#search"); err != nil {
			zap.L().Debug("browser: results container not found", zap.String("query", query), zap.Error(err))
		}
		cancel()
	}

	select {
	case <-ctx.Done():
		return evidence.SearchResult{Err: ctx.Err()}
	case <-time.After(settleDelay):
	}

	text, err := evalString(p, bodyTextJS)
	if err != nil {
		return evidence.SearchResult{Err: eris.Wrap(err, "browser: read results")}
	}
	if kind := scrape.ClassifyText(text); kind != scrape.BlockNone {
		return evidence.SearchResult{Err: scrape.BlockedError("browser search", kind)}
	}
	links, err := evalStrings(p, linksJS)
	if err != nil {
		zap.L().Debug("browser: read result links", zap.Error(err))
	}

	return evidence.SearchResult{
		Text: strings.TrimSpace(text),
		URLs: FilterLinks(links, MaxResultLinks),
	}
}

// Scrape navigates the current tab to url and returns its script-free body
// text with whitespace collapsed.
func (s *RodSession) Scrape(ctx context.Context, url string) evidence.ScrapeResult {
	page, err := s.current()
	if err != nil {
		return evidence.ScrapeResult{Err: err}
	}
	p, err := s.navigate(ctx, page, url)
	if err != nil {
		return evidence.ScrapeResult{Err: err}
	}
	text, err := evalString(p, stripScriptsJS)
	if err != nil {
		return evidence.ScrapeResult{Err: eris.Wrapf(err, "browser: read %s", url)}
	}
	if kind := scrape.ClassifyText(text); kind != scrape.BlockNone {
		return evidence.ScrapeResult{Err: scrape.BlockedError("browser", kind)}
	}
	return evidence.ScrapeResult{Text: evidence.Truncate(CollapseWhitespace(text), scrape.MaxPageChars)}
}

// FindLogo visits siteURL and returns the first logo-like image, Open Graph
// image or icon it declares.
func (s *RodSession) FindLogo(ctx context.Context, siteURL string) (string, error) {
	page, err := s.current()
	if err != nil {
		return "", err
	}
	p, err := s.navigate(ctx, page, siteURL)
	if err != nil {
		return "", err
	}
	candidates, err := evalStrings(p, logoCandidatesJS)
	if err != nil {
		return "", eris.Wrap(err, "browser: read logo candidates")
	}
	info, err := p.Info()
	base := siteURL
	if err == nil && info.URL != "" {
		base = info.URL
	}
	return scrape.ResolveLogo(base, candidates), nil
}

// OpenIsolatedContext opens a new tab that receives all following calls
// until it is closed.
func (s *RodSession) OpenIsolatedContext(ctx context.Context) error {
	if s.browser == nil || len(s.tabs) == 0 {
		return eris.New("browser: session closed")
	}
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return eris.Wrap(err, "browser: open tab")
	}
	s.tabs = append(s.tabs, page)
	return nil
}

// CloseIsolatedContext closes the newest tab and returns to the previous one.
func (s *RodSession) CloseIsolatedContext(_ context.Context) error {
	if len(s.tabs) <= 1 {
		return ErrNoIsolatedContext
	}
	top := s.tabs[len(s.tabs)-1]
	s.tabs = s.tabs[:len(s.tabs)-1]
	if err := top.Close(); err != nil {
		return eris.Wrap(err, "browser: close tab")
	}
	if _, err := s.tabs[len(s.tabs)-1].Activate(); err != nil {
		zap.L().Debug("browser: activate previous tab", zap.Error(err))
	}
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		s.tabs = nil
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.closeErr = eris.Wrap(err, "browser: close")
			}
		}
		s.killLauncher()
		zap.L().Info("browser: session closed")
	})
	return s.closeErr
}

func (s *RodSession) killLauncher() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}

func evalString(p *rod.Page, js string) (string, error) {
	res, err := p.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func evalStrings(p *rod.Page, js string) ([]string, error) {
	res, err := p.Eval(js)
	if err != nil {
		return nil, err
	}
	arr := res.Value.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out, nil
}
