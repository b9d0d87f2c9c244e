package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"veriflow/internal/verify/models"
	dErrors "veriflow/pkg/domain-errors"
)

// LLMConfig configures the document-reasoning client. BaseURL may
// point at any OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LLMInvoiceAnalyzer implements InvoiceAnalyzer over an
// OpenAI-compatible chat-completions API with vision input.
type LLMInvoiceAnalyzer struct {
	client *openai.Client
	model  string
}

// NewLLMInvoiceAnalyzer builds the live analyzer. The API key is
// required; construction fails rather than degrading to mock output.
func NewLLMInvoiceAnalyzer(cfg LLMConfig) (*LLMInvoiceAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &LLMInvoiceAnalyzer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

const invoicePrompt = `You are a professional charity auditor. Analyze the invoice image and
decide whether it matches the declared withdrawal purpose.

Campaign context: %s
Declared withdrawal reason: %s

Respond with JSON only, no surrounding text:
{"score": <0-100>, "is_valid": <true if score >= 70>, "reasoning": "<explanation>"}`

const billPrompt = `You are a professional charity auditor. Extract the line items from the
bill image and evaluate them against the declared intent.

Declared withdrawal reason: %s
Campaign goal: %s

Respond with JSON only, no surrounding text:
{"total_amount": <number>, "items": [{"name": "...", "quantity": <number>,
"unit_price": <number>, "total_price": <number>, "is_reasonable": <bool>}],
"price_warnings": ["..."], "serves_campaign_goal": <bool>,
"reasoning": "<explanation>", "trust_score": <0-100>}`

// Analyze runs the simple invoice verdict used by the proof workflow.
func (a *LLMInvoiceAnalyzer) Analyze(ctx context.Context, image []byte, campaignContext, withdrawalReason string) (InvoiceAnalysis, error) {
	prompt := fmt.Sprintf(invoicePrompt, campaignContext, withdrawalReason)

	raw, err := a.complete(ctx, prompt, image)
	if err != nil {
		return InvoiceAnalysis{}, err
	}

	var parsed struct {
		Score     int    `json:"score"`
		IsValid   bool   `json:"is_valid"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return InvoiceAnalysis{}, dErrors.Wrap(err, dErrors.CodeInternal, "parse invoice analysis response")
	}

	return InvoiceAnalysis{
		Score:     clampScore(parsed.Score),
		Valid:     parsed.IsValid,
		Reasoning: parsed.Reasoning,
	}, nil
}

// AnalyzeDetailed runs the itemized bill analysis used by the hybrid
// workflow.
func (a *LLMInvoiceAnalyzer) AnalyzeDetailed(ctx context.Context, image []byte, withdrawalReason, campaignGoal string) (BillAnalysis, error) {
	prompt := fmt.Sprintf(billPrompt, withdrawalReason, campaignGoal)

	raw, err := a.complete(ctx, prompt, image)
	if err != nil {
		return BillAnalysis{}, err
	}

	var parsed struct {
		TotalAmount        float64           `json:"total_amount"`
		Items              []models.BillItem `json:"items"`
		PriceWarnings      []string          `json:"price_warnings"`
		ServesCampaignGoal bool              `json:"serves_campaign_goal"`
		Reasoning          string            `json:"reasoning"`
		TrustScore         int               `json:"trust_score"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return BillAnalysis{}, dErrors.Wrap(err, dErrors.CodeInternal, "parse bill analysis response")
	}

	return BillAnalysis{
		TotalAmount:        parsed.TotalAmount,
		Items:              parsed.Items,
		PriceWarnings:      parsed.PriceWarnings,
		ServesCampaignGoal: parsed.ServesCampaignGoal,
		Reasoning:          parsed.Reasoning,
		TrustScore:         clampScore(parsed.TrustScore),
	}, nil
}

func (a *LLMInvoiceAnalyzer) complete(ctx context.Context, prompt string, image []byte) (string, error) {
	imageURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image),
		base64.StdEncoding.EncodeToString(image),
	)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "llm completion")
	}
	if len(resp.Choices) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "llm returned no choices")
	}

	return stripCodeFence(resp.Choices[0].Message.Content), nil
}

// stripCodeFence removes a markdown code fence the model sometimes
// wraps around JSON output despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var _ InvoiceAnalyzer = (*LLMInvoiceAnalyzer)(nil)
