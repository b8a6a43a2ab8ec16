package strategy

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/atlas/internal/model"
)

var specialQueries = map[model.FieldName]string{
	model.FieldKeyPeople:           "%s leadership executive team board members",
	model.FieldRegistrationDetails: "%s company registration number VAT SIC code",
	model.FieldContactGranular:     "%s phone number email support contact us page",
	model.FieldTechStack:           "%s engineering hiring stack technology used",
}

// SpecialQuery returns the field-specialized secondary query used by the
// first strategy.
func SpecialQuery(field model.FieldName, company string) string {
	if tmpl, ok := specialQueries[field]; ok {
		return fmt.Sprintf(tmpl, company)
	}
	return fmt.Sprintf("%s %s official data", company, field)
}

// socialDomains are skipped while surfing unless the field is social_media.
var socialDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"tiktok.com",
}

// SurfFilter returns the URL predicate for field.
func SurfFilter(field model.FieldName) func(string) bool {
	if field == model.FieldSocialMedia {
		return func(string) bool { return true }
	}
	return func(rawURL string) bool { return !IsSocialURL(rawURL) }
}

// IsSocialURL reports whether rawURL is hosted on a known social network.
func IsSocialURL(rawURL string) bool {
	host := hostOf(rawURL)
	for _, d := range socialDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// GuessDomain constructs the likely official site of company. Inputs that
// already look like a domain are used as-is.
func GuessDomain(company string) string {
	c := strings.TrimSpace(company)
	if strings.Contains(c, ".") {
		c = strings.TrimPrefix(strings.TrimPrefix(c, "https://"), "http://")
		c = strings.TrimPrefix(strings.TrimSuffix(c, "/"), "www.")
		return "https://www." + strings.ToLower(c)
	}
	return "https://www." + siteToken(c) + ".com"
}

// siteToken lowercases company, strips diacritics and keeps only characters
// valid in a host label.
func siteToken(company string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(fold, company)
	if err != nil {
		s = company
	}
	s = strings.ToLower(s)
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
