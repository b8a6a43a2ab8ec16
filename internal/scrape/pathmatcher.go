package scrape

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExcludePaths skip downloads and account flows, none of which render
// readable company text.
var DefaultExcludePaths = []string{
	"*.pdf", "*.zip", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",
	"*.jpg", "*.jpeg", "*.png", "*.gif", "*.svg", "*.webp", "*.mp4", "*.mp3",
	"/wp-admin/*", "/wp-login.php", "/cart/*", "/checkout/*", "/login/*", "/account/*",
}

// pathRule is one compiled exclude pattern.
type pathRule struct {
	glob string
	// base matches against the last path segment at any depth.
	base bool
	// dir is set for "/dir/*" patterns, which also cover deeper paths.
	dir string
}

func compileRule(pattern string) pathRule {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	r := pathRule{glob: pattern}
	switch {
	case !strings.HasPrefix(pattern, "/"):
		r.base = true
	case strings.HasSuffix(pattern, "/*"):
		r.dir = strings.TrimSuffix(pattern, "/*")
	}
	return r
}

func (r pathRule) match(p string) bool {
	if r.base {
		ok, _ := path.Match(r.glob, path.Base(p))
		return ok
	}
	if ok, _ := path.Match(r.glob, p); ok {
		return true
	}
	return r.dir != "" && (p == r.dir || strings.HasPrefix(p, r.dir+"/"))
}

// PathMatcher decides which URLs are never worth scraping. Patterns are
// case-insensitive globs: "/blog/*" covers /blog and everything below it,
// "/*.pdf" matches top-level files only and "*.pdf" matches at any depth.
type PathMatcher struct {
	patterns []string
	rules    []pathRule
}

// NewPathMatcher compiles patterns, or DefaultExcludePaths when none are given.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = DefaultExcludePaths
	}
	m := &PathMatcher{patterns: patterns, rules: make([]pathRule, 0, len(patterns))}
	for _, p := range patterns {
		if strings.TrimSpace(p) != "" {
			m.rules = append(m.rules, compileRule(p))
		}
	}
	return m
}

// Patterns returns the patterns the matcher was built from.
func (m *PathMatcher) Patterns() []string { return m.patterns }

// IsExcluded reports whether rawURL should be skipped. Unparseable URLs and
// non-web schemes such as mailto: are always excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, r := range m.rules {
		if r.match(p) {
			return true
		}
	}
	return false
}
