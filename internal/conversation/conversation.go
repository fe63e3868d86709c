package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/llm"
)

var installWords = regexp.MustCompile(`\b(?:install(?:ing|ed)?|set\s?up|download|get|need|want|require|provision)\b`)

// KeywordClassifier labels prompts containing an install verb as install requests.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) (domain.Intent, error) {
	if installWords.MatchString(strings.ToLower(text)) {
		return domain.IntentInstall, nil
	}
	return domain.IntentSimple, nil
}

const classifyPrompt = `You classify messages sent to a software installation assistant.
Reply "install" when the user wants software installed, set up, downloaded or provided, even without the word install.
Reply "simple" for general questions or requests for help.
Examples:
- "I need Chrome browser" -> install
- "Get me Python and Java" -> install
- "What is Python?" -> simple
- "How do I use this system?" -> simple
Reply with one word.`

// LLMClassifier delegates intent labelling to a chat model.
type LLMClassifier struct {
	client llm.Client
	model  string
}

// NewLLMClassifier wraps a chat client.
func NewLLMClassifier(client llm.Client, model string) *LLMClassifier {
	return &LLMClassifier{client: client, model: model}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (domain.Intent, error) {
	res, err := c.client.Chat(ctx, llm.Request{
		Model: c.model,
		Messages: []llm.Message{
			{Role: "system", Content: classifyPrompt},
			{Role: "user", Content: text},
		},
		Parameters: map[string]any{"temperature": 0.0},
	})
	if err != nil {
		return "", err
	}
	switch firstWord(res.Text) {
	case "install":
		return domain.IntentInstall, nil
	case "simple":
		return domain.IntentSimple, nil
	default:
		return "", fmt.Errorf("unexpected classification %q", strings.TrimSpace(res.Text))
	}
}

// firstWord lowercases the first word of s without surrounding quotes or punctuation.
func firstWord(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "\"'`.,:;!?*")
}

// HelpText is the answer given when no chat model is configured.
const HelpText = `I can help you get software installed. Ask me with something like "install Google Chrome" or "install Python 3.12 and Git", and I will raise a ticket for each item and send it for approval.`

// CannedResponder always answers with HelpText.
type CannedResponder struct{}

func (CannedResponder) Answer(context.Context, string) (string, error) {
	return HelpText, nil
}

const answerPrompt = `You are a helpful assistant for a software installation system.
Be concise and friendly. When users ask about installing software, tell them to send a request like "install <software name>".`

// LLMResponder answers free form questions with a chat model.
type LLMResponder struct {
	client llm.Client
	model  string
}

// NewLLMResponder wraps a chat client.
func NewLLMResponder(client llm.Client, model string) *LLMResponder {
	return &LLMResponder{client: client, model: model}
}

func (r *LLMResponder) Answer(ctx context.Context, text string) (string, error) {
	res, err := r.client.Chat(ctx, llm.Request{
		Model: r.model,
		Messages: []llm.Message{
			{Role: "system", Content: answerPrompt},
			{Role: "user", Content: text},
		},
		Parameters: map[string]any{"temperature": 0.3},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}
