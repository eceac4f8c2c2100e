package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/hamyon/hamyon/internal/config"
	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/parser"
)

// Source tells which parser produced an expense.
type Source string

const (
	SourceAI    Source = "ai"
	SourceRegex Source = "regex"
)

var (
	ErrNotConfigured = errors.New("AI parser not configured")
	ErrNoJSON        = errors.New("no JSON object in model reply")

	reJSONObject = regexp.MustCompile(`(?s)\{.*\}`)
)

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// generator is the part of GeminiSDKClient the Client depends on.
type generator interface {
	Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, *Usage, error)
}

type Client struct {
	gen     generator
	usdRate float64
}

// NewClient returns a client that only uses the regex parser when Gemini is
// not configured or cannot be initialised.
func NewClient(ctx context.Context, cfg *config.Config) *Client {
	client := &Client{usdRate: 12800}
	if cfg == nil {
		return client
	}
	if cfg.USDRate > 0 {
		client.usdRate = cfg.USDRate
	}

	if cfg.HasLLMConfig() {
		gc, err := NewGeminiSDKClient(ctx, cfg)
		if err != nil {
			logger.Warn("Gemini client unavailable, using regex parser only", logger.Fields{
				"error": err.Error(),
			})
			return client
		}
		client.gen = gc
	}

	return client
}

// Enabled reports whether AI calls are possible.
func (c *Client) Enabled() bool {
	return c != nil && c.gen != nil
}

func (c *Client) expensePrompt(text string) string {
	return fmt.Sprintf(`Analyze this Uzbek expense text: %q
Return ONLY a JSON object with keys: "amount" (number in UZS), "title" (short string), "category" (string).
Categories: %s.
If currency is USD, convert to UZS (rate: %s). If no amount, set "amount": 0.
Example output: {"amount": 15000, "title": "Taksi", "category": "Transport"}`,
		text, quotedCategories(), strconv.FormatFloat(c.usdRate, 'f', -1, 64))
}

// ParseExpense asks Gemini to extract an expense from text.
func (c *Client) ParseExpense(ctx context.Context, text string) (parser.Expense, *Usage, error) {
	if !c.Enabled() {
		return parser.Expense{}, nil, ErrNotConfigured
	}

	reply, usage, err := c.gen.Generate(ctx, genai.Text(c.expensePrompt(text)), generationConfig("application/json", 200))
	if err != nil {
		return parser.Expense{}, usage, err
	}

	expense, err := decodeExpense(reply)
	return expense, usage, err
}

// AnalyzeExpense uses the AI parser when possible and the regex parser
// otherwise. It never fails.
func (c *Client) AnalyzeExpense(ctx context.Context, text string) (parser.Expense, Source) {
	if c.Enabled() {
		expense, usage, err := c.ParseExpense(ctx, text)
		if err == nil {
			fields := logger.Fields{"amount": expense.Amount, "category": expense.Category}
			if usage != nil {
				fields["total_tokens"] = usage.TotalTokens
			}
			logger.Debug("AI parsed expense", fields)
			return expense, SourceAI
		}
		logger.Warn("AI parsing failed, falling back to regex", logger.Fields{
			"error": err.Error(),
		})
	}
	return parser.Parse(text), SourceRegex
}

// Transcribe converts a voice message to text with a multimodal request.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, *Usage, error) {
	if !c.Enabled() {
		return "", nil, ErrNotConfigured
	}

	contents := []*genai.Content{{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{
			{Text: "Transcribe this Uzbek voice message verbatim. Return only the spoken text. If nothing intelligible is said, return an empty string."},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
		},
	}}

	text, usage, err := c.gen.Generate(ctx, contents, generationConfig("text/plain", 500))
	if err != nil {
		return "", usage, fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.Trim(text, "\"' \n"), usage, nil
}

// Close cleans up the client resources
func (c *Client) Close() error {
	if gc, ok := c.gen.(*GeminiSDKClient); ok {
		return gc.Close()
	}
	return nil
}

// aiExpense mirrors the JSON the model is asked for. Amount may arrive as a
// number or a numeric string.
type aiExpense struct {
	Amount   json.RawMessage `json:"amount"`
	Title    string          `json:"title"`
	Category string          `json:"category"`
}

func decodeExpense(reply string) (parser.Expense, error) {
	raw := reJSONObject.FindString(reply)
	if raw == "" {
		return parser.Expense{}, ErrNoJSON
	}

	var ai aiExpense
	if err := json.Unmarshal([]byte(raw), &ai); err != nil {
		return parser.Expense{}, fmt.Errorf("failed to decode model reply: %w", err)
	}

	amount, err := decodeAmount(ai.Amount)
	if err != nil {
		return parser.Expense{}, err
	}

	title := strings.TrimSpace(ai.Title)
	if title == "" {
		title = consts.DefaultAITitle
	}

	return parser.Expense{
		Amount:   amount,
		Title:    title,
		Category: parser.NormalizeCategory(ai.Category),
	}, nil
}

func decodeAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 0 {
			return 0, nil
		}
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid amount %s", raw)
	}
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	f, err := parser.ParseAmount(s)
	if err != nil {
		return 0, nil
	}
	return f, nil
}

func quotedCategories() string {
	quoted := make([]string, len(consts.Categories))
	for i, c := range consts.Categories {
		quoted[i] = strconv.Quote(c)
	}
	return strings.Join(quoted, ", ")
}
