package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher_IsExcluded(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher([]string{"/press/*", "/*.pdf", "*.zip", "/jobs/*"})

	tests := []struct {
		name     string
		url      string
		excluded bool
	}{
		{"press release", "https://acme.example/press/2025-expansion", true},
		{"press index", "https://acme.example/press", true},
		{"press deep", "https://acme.example/press/2025/03/plant", true},
		{"job posting", "https://acme.example/jobs/welder", true},
		{"top-level pdf", "https://acme.example/brochure.pdf", true},
		{"nested pdf", "https://acme.example/docs/brochure.pdf", false},
		{"zip at any depth", "https://acme.example/downloads/2025/catalog.zip", true},
		{"about page", "https://acme.example/about-us", false},
		{"leadership", "https://acme.example/company/leadership", false},
		{"homepage", "https://acme.example/", false},
		{"bare host", "https://acme.example", false},
		{"pressroom is not press", "https://acme.example/pressroom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.excluded, m.IsExcluded(tt.url))
		})
	}
}

func TestPathMatcher_Defaults(t *testing.T) {
	m := NewPathMatcher(nil)

	assert.Equal(t, DefaultExcludePaths, m.Patterns())
	assert.True(t, m.IsExcluded("https://acme.example/files/2024/Annual-Report.PDF"))
	assert.True(t, m.IsExcluded("https://acme.example/assets/logo.svg"))
	assert.True(t, m.IsExcluded("https://acme.example/wp-admin/options.php"))
	assert.True(t, m.IsExcluded("https://acme.example/checkout"))
	assert.False(t, m.IsExcluded("https://acme.example/contact"))
	assert.False(t, m.IsExcluded("https://acme.example/blog/new-ceo"))
}

func TestPathMatcher_CaseInsensitivePatterns(t *testing.T) {
	m := NewPathMatcher([]string{"/Careers/*"})

	assert.True(t, m.IsExcluded("https://acme.example/careers/open-roles"))
	assert.True(t, m.IsExcluded("https://acme.example/CAREERS/OPEN-ROLES"))
}

func TestPathMatcher_Schemes(t *testing.T) {
	m := NewPathMatcher([]string{"/press/*"})

	assert.True(t, m.IsExcluded("mailto:sales@acme.example"))
	assert.True(t, m.IsExcluded("tel:+15125550100"))
	assert.True(t, m.IsExcluded("javascript:void(0)"))
	assert.True(t, m.IsExcluded("://broken"))
	assert.False(t, m.IsExcluded("http://acme.example/about"))
}

func TestPathMatcher_BlankPatternsIgnored(t *testing.T) {
	m := NewPathMatcher([]string{"  ", "/press/*"})

	assert.False(t, m.IsExcluded("https://acme.example/about"))
	assert.True(t, m.IsExcluded("https://acme.example/press/x"))
}
