package scrape

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// LogoCandidates lists, in preference order, the logo images, Open Graph
// image and icons an HTML document declares.
func LogoCandidates(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	var imgs, og, icons []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				if src := attr(n, "src"); src != "" && mentionsLogo(attr(n, "alt"), attr(n, "class"), src) {
					imgs = append(imgs, src)
				}
			case "meta":
				if attr(n, "property") == "og:image" {
					if c := attr(n, "content"); c != "" {
						og = append(og, c)
					}
				}
			case "link":
				if strings.Contains(strings.ToLower(attr(n, "rel")), "icon") {
					if h := attr(n, "href"); h != "" {
						icons = append(icons, h)
					}
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	out := append(imgs, og...)
	return append(out, icons...), nil
}

// ResolveLogo turns the first usable logo candidate into an absolute URL
// relative to pageURL. Data URIs are skipped.
func ResolveLogo(pageURL string, candidates []string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || strings.HasPrefix(c, "data:") {
			continue
		}
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme == "http" || abs.Scheme == "https" {
			return abs.String()
		}
	}
	return ""
}

// FindLogo fetches siteURL and returns its resolved logo, or "" when the
// page declares none.
func (l *LocalScraper) FindLogo(ctx context.Context, siteURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("local_http: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", eris.Wrap(err, "local_http: read body")
	}

	candidates, err := LogoCandidates(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return ResolveLogo(resp.Request.URL.String(), candidates), nil
}

func mentionsLogo(values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), "logo") {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
