package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiConfig configures the network-backed provider.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Gemini calls the Generative Language API. Every method returns an
// error on timeout, transport failure, or an answer that violates the
// result contract; callers fall back to deterministic data.
type Gemini struct {
	cfg     GeminiConfig
	client  *http.Client
	baseURL string
}

// NewGemini creates the network-backed provider.
func NewGemini(cfg GeminiConfig) *Gemini {
	return &Gemini{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: geminiBaseURL,
	}
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig geminiGeneration `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGeneration struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate runs one prompt through the model and returns its text.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGeneration{
			Temperature:     g.cfg.Temperature,
			MaxOutputTokens: g.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.cfg.Model, g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	text := sanitizeOutput(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Translate implements Provider.
func (g *Gemini) Translate(ctx context.Context, q TranslationQuery) (*TranslationResult, error) {
	text, err := g.generate(ctx, buildTranslatePrompt(q))
	if err != nil {
		return nil, err
	}

	return &TranslationResult{
		TranslatedText: text,
		Confidence:     0.9,
		ErrorFlag:      false,
	}, nil
}

// SuggestPrice implements Provider. The model answer must be a JSON
// price band satisfying min <= recommended <= max.
func (g *Gemini) SuggestPrice(ctx context.Context, q PriceQuery) (*PriceResult, error) {
	text, err := g.generate(ctx, buildPricePrompt(q))
	if err != nil {
		return nil, err
	}

	var result PriceResult
	if err := unmarshalEmbeddedJSON(text, &result); err != nil {
		return nil, err
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: price band %g/%g/%g", ErrMalformedResult,
			result.MinPrice, result.RecommendedPrice, result.MaxPrice)
	}
	switch result.MarketTrend {
	case "rising", "falling", "stable":
	default:
		return nil, fmt.Errorf("%w: market trend %q", ErrMalformedResult, result.MarketTrend)
	}

	return &result, nil
}

// Negotiate implements Provider.
func (g *Gemini) Negotiate(ctx context.Context, q NegotiationQuery) (*NegotiationResult, error) {
	text, err := g.generate(ctx, buildNegotiatePrompt(q))
	if err != nil {
		return nil, err
	}

	var result NegotiationResult
	if err := unmarshalEmbeddedJSON(text, &result); err != nil {
		return nil, err
	}

	var suggestions []string
	for _, s := range result.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, clampRunes(s, 200))
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: no usable suggestions", ErrMalformedResult)
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	result.Suggestions = suggestions

	switch result.Tone {
	case "friendly", "professional", "firm":
	default:
		result.Tone = "professional"
	}

	return &result, nil
}

// unmarshalEmbeddedJSON extracts the first JSON object from model text
// that may be wrapped in prose or markdown fences.
func unmarshalEmbeddedJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no JSON object in response", ErrMalformedResult)
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return nil
}
