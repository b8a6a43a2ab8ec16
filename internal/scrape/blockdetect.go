package scrape

import (
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// BlockKind names the anti-bot measure that replaced a page's content.
type BlockKind string

const (
	BlockNone         BlockKind = ""
	BlockCloudflare   BlockKind = "cloudflare"
	BlockCaptcha      BlockKind = "captcha"
	BlockRateLimit    BlockKind = "rate_limited"
	BlockAccessDenied BlockKind = "access_denied"
	BlockJSShell      BlockKind = "js_shell"
	BlockUnusual      BlockKind = "unusual_traffic"
)

// ErrBlocked is wrapped by errors for pages that served a block instead of
// content.
var ErrBlocked = eris.New("scrape: blocked")

// shortPage is the length under which interstitial phrases are trusted; on
// longer pages they are usually incidental mentions.
const shortPage = 2000

type marker struct {
	kind   BlockKind
	phrase string
	// anywhere matches regardless of page length.
	anywhere bool
}

var markers = []marker{
	{BlockUnusual, "our systems have detected unusual traffic", true},
	{BlockUnusual, "/sorry/index", true},
	{BlockCloudflare, "cf-browser-verification", true},
	{BlockCloudflare, "checking your browser", false},
	{BlockCloudflare, "just a moment...", false},
	{BlockCloudflare, "attention required! | cloudflare", true},
	{BlockCaptcha, "g-recaptcha", true},
	{BlockCaptcha, "h-captcha", true},
	{BlockCaptcha, "captcha", false},
	{BlockAccessDenied, "access denied", false},
	{BlockAccessDenied, "403 forbidden", false},
	{BlockJSShell, "please enable javascript", false},
	{BlockJSShell, "enable javascript and cookies", false},
	{BlockJSShell, `http-equiv="refresh"`, false},
}

// ClassifyText looks for interstitial markers in page text or HTML.
func ClassifyText(text string) BlockKind {
	lower := strings.ToLower(text)
	short := len(text) < shortPage
	for _, m := range markers {
		if (m.anywhere || short) && strings.Contains(lower, m.phrase) {
			return m.kind
		}
	}
	return BlockNone
}

// Classify inspects a response's status, headers and body.
func Classify(resp *http.Response, body []byte) BlockKind {
	if resp == nil {
		return BlockNone
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return BlockRateLimit
	case http.StatusForbidden, http.StatusServiceUnavailable:
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}
	return ClassifyText(string(body))
}

// BlockedError wraps ErrBlocked with the detected kind.
func BlockedError(source string, kind BlockKind) error {
	return eris.Wrapf(ErrBlocked, "%s: %s", source, kind)
}
