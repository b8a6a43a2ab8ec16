// Package anthropic sends single-turn prompts to the Anthropic Messages API
// and reports token usage per call.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/resilience"
)

// statusOverloaded is returned by the API when it sheds load.
const statusOverloaded = 529

// Client completes one prompt at a time.
type Client interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Prompt is a single user turn with an optional system instruction.
type Prompt struct {
	Model       string
	MaxTokens   int64
	System      string
	User        string
	Temperature *float64
}

// Completion is the text reply to a Prompt.
type Completion struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      Usage
}

// Truncated reports whether the reply hit the token ceiling.
func (c *Completion) Truncated() bool {
	return c != nil && c.StopReason == string(sdk.StopReasonMaxTokens)
}

// Usage counts the tokens billed for one call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// rate is USD per million tokens.
type rate struct {
	input, output float64
}

// rates is keyed by model family; dated and aliased model IDs share a rate.
var rates = []struct {
	prefix string
	rate
}{
	{"claude-haiku-4-5", rate{1.00, 5.00}},
	{"claude-3-5-haiku", rate{0.80, 4.00}},
	{"claude-sonnet-4", rate{3.00, 15.00}},
	{"claude-opus-4", rate{15.00, 75.00}},
}

func rateFor(model string) (rate, bool) {
	for _, r := range rates {
		if strings.HasPrefix(model, r.prefix) {
			return r.rate, true
		}
	}
	return rate{}, false
}

// Cost estimates the USD cost of u on model, or 0 for an unpriced model.
// Cache writes bill at 1.25x input and cache reads at 0.1x.
func (u Usage) Cost(model string) float64 {
	r, ok := rateFor(model)
	if !ok {
		return 0
	}
	in := float64(u.Input) + 1.25*float64(u.CacheWrite) + 0.1*float64(u.CacheRead)
	return (in*r.input + float64(u.Output)*r.output) / 1e6
}

// Log records u at debug level with the caller's label.
func (u Usage) Log(model, label string) {
	zap.L().Debug("anthropic: usage",
		zap.String("model", model),
		zap.String("label", label),
		zap.Int64("input_tokens", u.Input),
		zap.Int64("output_tokens", u.Output),
		zap.Float64("estimated_cost_usd", u.Cost(model)),
	)
}

// Option configures the client.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

// WithMaxRetries sets the SDK's own retry budget. Callers that retry through
// a resilience.Policy usually pass 0.
func WithMaxRetries(n int) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithMaxRetries(n))
	}
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates an SDK-backed client.
func NewClient(apiKey string, opts ...Option) Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &sdkClient{client: sdk.NewClient(reqOpts...)}
}

func (c *sdkClient) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	msg, err := c.client.Messages.New(ctx, newParams(p))
	if err != nil {
		return nil, classify(eris.Wrap(err, "anthropic: complete"))
	}
	return completion(msg), nil
}

func newParams(p Prompt) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.Model),
		MaxTokens: p.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
	}
	if p.System != "" {
		params.System = []sdk.TextBlockParam{{Text: p.System}}
	}
	if p.Temperature != nil {
		params.Temperature = sdk.Float(*p.Temperature)
	}
	return params
}

func completion(msg *sdk.Message) *Completion {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	return &Completion{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
}

// classify marks rate-limit, overload and server errors as transient.
func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == statusOverloaded || resilience.IsTransientStatus(apiErr.StatusCode) {
			return resilience.NewTransientError(err, apiErr.StatusCode)
		}
	}
	return err
}
