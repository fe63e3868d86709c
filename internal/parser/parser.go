package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/llm"
)

// ErrNoItems reports extraction output that named no software.
var ErrNoItems = errors.New("no software extracted")

// Extractor is the primary parsing tier.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]domain.LineItem, error)
}

// Parser turns a prompt into ordered, deduplicated line items.
type Parser struct {
	extractor Extractor
	fallback  *Fallback
	aliases   *Aliases
	logger    *zap.Logger
}

// New builds a Parser. A nil extractor leaves only the deterministic tier.
func New(extractor Extractor, aliases *Aliases, logger *zap.Logger) *Parser {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		extractor: extractor,
		fallback:  NewFallback(aliases),
		aliases:   aliases,
		logger:    logger,
	}
}

// Parse returns nil when the prompt is not an install request.
func (p *Parser) Parse(ctx context.Context, prompt string) []domain.LineItem {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}

	if p.extractor != nil {
		items, err := p.extractor.Extract(ctx, prompt)
		switch {
		case err != nil:
			p.logger.Warn("llm extraction failed; using fallback parser", zap.Error(err))
		case len(items) == 0:
			p.logger.Debug("llm extraction returned no items; using fallback parser")
		default:
			for i := range items {
				if canonical, ok := p.aliases.Canonical(items[i].Software); ok {
					items[i].Software = canonical
				}
			}
			if out := dedupe(items); len(out) > 0 {
				return out
			}
		}
	}

	return p.fallback.Parse(prompt)
}

const extractionPrompt = `You extract software installation requests from user messages.
Rules:
- List every software product mentioned, in the order mentioned.
- Use the complete product name, for example "chrome" becomes "Google Chrome" and "vs code" becomes "Visual Studio Code".
- Lists may be separated by commas, "and", "&" or ";".
- Use "latest" when no version is given.
- Reply with a JSON array only, like [{"software": "Python", "version": "3.9"}].
- Reply with [] when the message does not ask for software.`

// catalogNameLimit caps how many catalog names are listed in the extraction prompt.
const catalogNameLimit = 200

// CatalogNames lists canonical catalog names.
type CatalogNames interface {
	Suggestions(ctx context.Context, limit int) []string
}

// LLMExtractor asks a chat model for a JSON array of line items.
type LLMExtractor struct {
	client llm.Client
	model  string
	names  CatalogNames
}

// NewLLMExtractor wraps a chat client. When names is set the catalog's
// canonical names are listed in the prompt.
func NewLLMExtractor(client llm.Client, model string, names CatalogNames) *LLMExtractor {
	return &LLMExtractor{client: client, model: model, names: names}
}

func (e *LLMExtractor) systemPrompt(ctx context.Context) string {
	if e.names == nil {
		return extractionPrompt
	}
	names := e.names.Suggestions(ctx, catalogNameLimit)
	if len(names) == 0 {
		return extractionPrompt
	}
	return extractionPrompt + "\nSoftware available in the catalog: " + strings.Join(names, ", ") +
		".\nUse these exact names whenever the user means one of them."
}

func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]domain.LineItem, error) {
	res, err := e.client.Chat(ctx, llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "system", Content: e.systemPrompt(ctx)},
			{Role: "user", Content: "Extract all software from this text: " + text},
		},
		Parameters: map[string]any{"temperature": 0.0},
	})
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Software string `json:"software"`
		Version  string `json:"version"`
	}
	if err := llm.DecodePayload(res.Text, &raw); err != nil {
		return nil, fmt.Errorf("malformed extraction output: %w", err)
	}

	items := make([]domain.LineItem, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Software)
		if name == "" {
			continue
		}
		items = append(items, domain.LineItem{Software: name, Version: strings.TrimSpace(r.Version)}.Normalized())
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}
