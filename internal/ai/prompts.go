package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Prompt templates sent to the inference provider. Kept in one place so
// wording changes never touch transport code.

func buildTranslatePrompt(q TranslationQuery) string {
	promptContext := q.Context
	if promptContext == "" {
		promptContext = "marketplace communication"
	}

	return fmt.Sprintf(`You are a professional translator specializing in Indian marketplace communication.

Task: Translate the following text from %s to %s.

Context: %s

Text to translate: %q

Requirements:
1. Maintain the original meaning and tone
2. Use appropriate marketplace terminology
3. Keep cultural context relevant to Indian markets
4. If the text contains prices, keep currency symbols as-is

Provide only the translated text without explanations.`,
		q.SourceLanguage, q.TargetLanguage, promptContext, q.Text)
}

func buildPricePrompt(q PriceQuery) string {
	return fmt.Sprintf(`You are a market analyst specializing in Indian agricultural and local market pricing.

Task: Provide price analysis for the following product.

Product Details:
- Name: %s
- Current Price: ₹%.2f per kg
- Quantity: %d kg
- Location: %s

Format your response as JSON:
{
    "min_price": <number>,
    "max_price": <number>,
    "recommended_price": <number>,
    "reasoning": "<brief explanation>",
    "market_trend": "<rising|falling|stable>",
    "confidence": <0.0-1.0>
}

Base your analysis on typical Indian market conditions and seasonal factors.`,
		q.ProductName, q.CurrentPrice, q.Quantity, q.Location)
}

func buildNegotiatePrompt(q NegotiationQuery) string {
	history := q.History
	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString("- ")
		sb.WriteString(msg)
		sb.WriteString("\n")
	}

	return fmt.Sprintf(`You are a negotiation assistant for Indian marketplace vendors.

Context:
- Product: %s
- Vendor's Price: ₹%.2f per kg
- Vendor Language: %s

Conversation History:
%s
Latest Buyer Message: %q

Task: Generate 3 professional reply suggestions for the vendor, concise (1-2 sentences each), respectful, and in %s.

Format as JSON:
{
    "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
    "tone": "<friendly|professional|firm>",
    "context": "<brief explanation>"
}`,
		q.ProductName, q.VendorPrice, q.VendorLanguage, sb.String(), q.BuyerMessage, q.VendorLanguage)
}

// harmful inputs are rejected before any prompt is built.
var harmfulPatterns = []string{
	"ignore previous instructions",
	"system prompt",
	"jailbreak",
	"pretend you are",
}

// GuardInput rejects empty, over-length, or prompt-injection input.
// Length is counted in characters, matching the request validators.
func GuardInput(text string, maxLength int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: input cannot be empty", ErrInvalidInput)
	}
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return fmt.Errorf("%w: input exceeds %d characters", ErrInvalidInput, maxLength)
	}

	lower := strings.ToLower(text)
	for _, pattern := range harmfulPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: disallowed content", ErrInvalidInput)
		}
	}
	return nil
}

// sanitizeOutput trims model output and caps its length.
func sanitizeOutput(text string) string {
	return clampRunes(strings.TrimSpace(text), 1000)
}

// clampRunes cuts text to at most n characters without splitting a
// multibyte rune.
func clampRunes(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}
