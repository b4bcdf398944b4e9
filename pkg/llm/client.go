// Package llm wraps the language-model text extraction used for technical
// specifications. Only the offline stub provider is implemented.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Task names understood by ParseText
const (
	TaskExtractSpecs = "extract_specs"
)

// ProviderStub is the offline provider
const ProviderStub = "stub"

// RawItem is one name/spec pair extracted from free text
type RawItem struct {
	Name string `json:"name"`
	Spec string `json:"spec"`
}

// ParseResult is the outcome of a ParseText call
type ParseResult struct {
	Message  string    `json:"message"`
	RawItems []RawItem `json:"raw_items"`
}

// Config selects the provider and its limits
type Config struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Client extracts structured items from text
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a client. Providers other than the stub are rejected.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderStub
	}
	if cfg.Provider != ProviderStub {
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	return &Client{cfg: cfg, logger: logger}, nil
}

// ParseText runs a task over text. For extract_specs every non-blank line
// containing ':' yields {name: before, spec: after}. Unknown tasks are no-ops.
func (c *Client) ParseText(ctx context.Context, text, task string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if task != TaskExtractSpecs {
		return &ParseResult{Message: "noop", RawItems: []RawItem{}}, nil
	}

	items := make([]RawItem, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, spec, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		items = append(items, RawItem{
			Name: strings.TrimSpace(name),
			Spec: strings.TrimSpace(spec),
		})
	}

	c.logger.Debug("llm text parsed",
		slog.String("provider", c.cfg.Provider),
		slog.String("model", c.cfg.Model),
		slog.String("task", task),
		slog.Int("items", len(items)),
	)

	return &ParseResult{Message: "parsed", RawItems: items}, nil
}
