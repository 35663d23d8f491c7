package anthropic

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/resilience"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 4000
)

// Completer turns a system prompt and a user prompt into completion text.
type Completer struct {
	client    Client
	model     string
	maxTokens int64
	retry     resilience.RetryConfig
}

// CompleterOption configures a Completer.
type CompleterOption func(*Completer)

// WithModel sets the model ID.
func WithModel(model string) CompleterOption {
	return func(c *Completer) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CompleterOption {
	return func(c *Completer) {
		if n > 0 {
			c.maxTokens = int64(n)
		}
	}
}

// WithRetry overrides the retry policy for transient API failures.
func WithRetry(cfg resilience.RetryConfig) CompleterOption {
	return func(c *Completer) { c.retry = cfg }
}

// NewCompleter creates a Completer on top of client.
func NewCompleter(client Client, opts ...CompleterOption) *Completer {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	c := &Completer{
		client:    client,
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
		retry:     retry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends one user turn under system and returns the joined text
// blocks. The system prompt is marked for prompt caching since it is the
// same for every order.
func (c *Completer) Complete(ctx context.Context, orderID, system, user string) (string, error) {
	req := MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []SystemBlock{{Text: system, CacheControl: &CacheControl{}}},
		Messages:  []Message{{Role: "user", Content: user}},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*MessageResponse, error) {
		return c.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", eris.Wrapf(err, "anthropic: complete order %s", orderID)
	}

	resp.Usage.LogUsage(c.model, orderID)

	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("anthropic: empty completion for order %s (stop reason %q)", orderID, resp.StopReason)
	}
	return text, nil
}
