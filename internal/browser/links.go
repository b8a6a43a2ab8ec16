package browser

import (
	"net/url"
	"strings"

	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/pkg/duckduckgo"
)

// MaxResultLinks caps the candidate URLs returned by one search.
const MaxResultLinks = 3

var engineHosts = []string{"google.", "duckduckgo.com", "gstatic.com", "youtube.com/results"}

// SearchURL builds the results page URL for query on engine.
func SearchURL(engine model.Engine, query string) string {
	q := url.QueryEscape(query)
	if engine == model.EngineSecondary {
		return "https://html.duckduckgo.com/html/?q=" + q
	}
	return "https://www.google.com/search?hl=en&q=" + q
}

// FilterLinks unwraps redirect links, drops search-engine hosts and
// duplicates, and keeps at most limit http(s) links.
func FilterLinks(links []string, limit int) []string {
	seen := make(map[string]bool, len(links))
	var out []string
	for _, raw := range links {
		if limit > 0 && len(out) >= limit {
			break
		}
		link := duckduckgo.ResolveURL(strings.TrimSpace(raw))
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if isEngineLink(u) || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	return out
}

func isEngineLink(u *url.URL) bool {
	s := strings.ToLower(u.Host + u.Path)
	for _, h := range engineHosts {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// CollapseWhitespace joins all whitespace runs into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
