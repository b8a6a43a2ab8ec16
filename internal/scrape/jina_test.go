package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas/internal/resilience"
	"github.com/sells-group/atlas/pkg/jina"
)

type mockJina struct {
	mock.Mock
}

func (m *mockJina) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	resp, _ := args.Get(0).(*jina.ReadResponse)
	return resp, args.Error(1)
}

func (m *mockJina) Search(ctx context.Context, query string) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*jina.SearchResponse)
	return resp, args.Error(1)
}

const longContent = "# Acme Corp\n\nWe build things and do stuff for people around the world. " +
	"This is a long enough content string to pass the fallback check which requires 100 chars."

func TestJinaAdapter_NameAndSupports(t *testing.T) {
	t.Parallel()
	adapter := NewJinaAdapter(&mockJina{})
	assert.Equal(t, "jina", adapter.Name())
	assert.True(t, adapter.Supports("https://example.com"))
	assert.True(t, adapter.Supports(""))
}

func TestJinaAdapter_Scrape_Success(t *testing.T) {
	t.Parallel()
	client := &mockJina{}
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://acme.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{
			URL:     "https://acme.com",
			Title:   "Acme Corp",
			Content: longContent + "\n",
			Usage:   jina.ReadUsage{Tokens: 500},
		},
	}, nil)

	result, err := adapter.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "jina", result.Source)
	assert.Equal(t, "https://acme.com", result.Page.URL)
	assert.Equal(t, "Acme Corp", result.Page.Title)
	assert.Equal(t, longContent, result.Page.Text)
	assert.Equal(t, 200, result.Page.StatusCode)
	client.AssertExpectations(t)
}

func TestJinaAdapter_Scrape_FillsMissingURL(t *testing.T) {
	t.Parallel()
	client := &mockJina{}
	client.On("Read", mock.Anything, "https://acme.com/about").Return(&jina.ReadResponse{
		Data: jina.ReadData{Content: longContent},
	}, nil)

	result, err := NewJinaAdapter(client).Scrape(context.Background(), "https://acme.com/about")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com/about", result.Page.URL)
}

func TestJinaAdapter_Scrape_ClientError(t *testing.T) {
	t.Parallel()
	client := &mockJina{}
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://fail.com").Return(nil, errors.New("connection refused"))

	_, err := adapter.Scrape(context.Background(), "https://fail.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestJinaAdapter_Scrape_ThinContent(t *testing.T) {
	t.Parallel()
	client := &mockJina{}
	client.On("Read", mock.Anything, "https://thin.example").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: "https://thin.example", Content: "short"},
	}, nil)

	_, err := NewJinaAdapter(client).Scrape(context.Background(), "https://thin.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thin content")
}

func TestJinaAdapter_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()
	client := &mockJina{}
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("upstream down")).Times(3)

	for range 3 {
		_, err := adapter.Scrape(context.Background(), "https://acme.com")
		require.Error(t, err)
	}

	assert.False(t, adapter.Supports("https://acme.com"))
	_, err := adapter.Scrape(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	client.AssertNumberOfCalls(t, "Read", 3)
}

func TestCheckReadResponse(t *testing.T) {
	t.Parallel()

	realPage := "Acme Corp designs industrial widgets for manufacturers across North America. " +
		"Founded in 1998, the company operates plants in Austin and Monterrey."

	tests := []struct {
		name    string
		resp    *jina.ReadResponse
		wantErr string
	}{
		{"nil response", nil, "empty read"},
		{"reader error code", &jina.ReadResponse{Code: 451}, "reader status 451"},
		{"thin content", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Loading..."}}, "thin content"},
		{
			"cloudflare interstitial",
			&jina.ReadResponse{Code: 200, Data: jina.ReadData{
				Content: "Just a moment... Checking your browser before accessing acme.example. This process is automatic. Your browser will redirect to your requested content shortly.",
			}},
			"cloudflare",
		},
		{
			"javascript wall",
			&jina.ReadResponse{Code: 200, Data: jina.ReadData{
				Content: "This site requires JavaScript. Please enable JavaScript to view the page content at acme.example and reload once it is switched on.",
			}},
			"js_shell",
		},
		{"real page", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: realPage}}, ""},
		{"code zero", &jina.ReadResponse{Data: jina.ReadData{Content: realPage}}, ""},
		{
			"incidental mention on long page",
			&jina.ReadResponse{Code: 200, Data: jina.ReadData{
				Content: realPage + strings.Repeat(" Our CDN partner is Cloudflare and our forms use captcha.", 40),
			}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := checkReadResponse(tt.resp)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
