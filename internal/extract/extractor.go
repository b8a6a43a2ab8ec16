package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/resilience"
	"github.com/sells-group/atlas/pkg/anthropic"
)

// Extractor turns an instruction into a decoded JSON object.
type Extractor interface {
	ExtractJSON(ctx context.Context, instruction string) (map[string]any, error)
}

const (
	systemPrompt = "You are a JSON generator. Output only raw JSON."
	jsonSuffix   = "\n\nIMPORTANT: Return ONLY valid JSON. No markdown formatting."

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-haiku-4-5-20251001"
	// DefaultMaxTokens bounds each extraction response.
	DefaultMaxTokens = 2048
)

// AnthropicExtractor implements Extractor with the Anthropic Messages API.
type AnthropicExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	policy    resilience.Policy
}

// NewAnthropicExtractor creates an extractor. Empty model and non-positive
// maxTokens fall back to the defaults.
func NewAnthropicExtractor(client anthropic.Client, model string, maxTokens int64, policy resilience.Policy) *AnthropicExtractor {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetry("anthropic", "extract")
	}
	return &AnthropicExtractor{client: client, model: model, maxTokens: maxTokens, policy: policy}
}

// ExtractJSON sends the instruction and parses the reply defensively. Only a
// failed API call is reported as an error; unparseable text yields an empty
// map.
func (e *AnthropicExtractor) ExtractJSON(ctx context.Context, instruction string) (map[string]any, error) {
	temp := 0.0
	prompt := anthropic.Prompt{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      systemPrompt,
		User:        instruction + jsonSuffix,
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, e.policy, func(ctx context.Context) (*anthropic.Completion, error) {
		return e.client.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: complete")
	}
	resp.Usage.Log(e.model, "extract")
	if resp.Truncated() {
		zap.L().Warn("extract: response hit max tokens", zap.Int64("max_tokens", e.maxTokens))
	}

	out := ParseJSONObject(resp.Text)
	if len(out) == 0 {
		zap.L().Debug("extract: response had no json object", zap.String("stop_reason", resp.StopReason))
	}
	return out, nil
}
