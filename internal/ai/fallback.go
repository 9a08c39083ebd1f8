package ai

import (
	"context"
	"fmt"
	"strings"
)

// Fallback is the deterministic Provider used when the inference
// collaborator is unconfigured, unreachable, or returns garbage. The
// same query always yields the same answer.
type Fallback struct{}

// NewFallback returns the deterministic provider.
func NewFallback() *Fallback { return &Fallback{} }

// fallbackPrices is the fixed price band table, in rupees per kg.
var fallbackPrices = map[string]PriceResult{
	"tomato": {MinPrice: 30, MaxPrice: 50, RecommendedPrice: 40},
	"onion":  {MinPrice: 25, MaxPrice: 45, RecommendedPrice: 35},
	"potato": {MinPrice: 20, MaxPrice: 35, RecommendedPrice: 28},
	"banana": {MinPrice: 40, MaxPrice: 80, RecommendedPrice: 60},
	"apple":  {MinPrice: 80, MaxPrice: 150, RecommendedPrice: 120},
}

var fallbackDefaultPrice = PriceResult{MinPrice: 20, MaxPrice: 100, RecommendedPrice: 50}

var fallbackSuggestions = []string{
	"Thank you for your interest. This is our best quality product at a fair price.",
	"I can offer a small discount for bulk purchase. How much quantity do you need?",
	"The price reflects the premium quality. Would you like to see the product first?",
}

// Translate returns the original text flagged as untranslated. There
// is no offline dictionary; the caller surfaces the degradation via
// error_flag and zero confidence.
func (f *Fallback) Translate(_ context.Context, q TranslationQuery) (*TranslationResult, error) {
	return &TranslationResult{
		TranslatedText: q.Text,
		Confidence:     0,
		ErrorFlag:      true,
	}, nil
}

// SuggestPrice returns the fixed band for known products and a generic
// band otherwise. Always trend "stable" with confidence 0.5.
func (f *Fallback) SuggestPrice(_ context.Context, q PriceQuery) (*PriceResult, error) {
	band, ok := fallbackPrices[strings.ToLower(strings.TrimSpace(q.ProductName))]
	if !ok {
		band = fallbackDefaultPrice
	}

	band.Reasoning = fmt.Sprintf("Default price range for %s based on typical market conditions", q.ProductName)
	band.MarketTrend = "stable"
	band.Confidence = 0.5
	return &band, nil
}

// Negotiate returns the fixed set of polite vendor replies.
func (f *Fallback) Negotiate(_ context.Context, _ NegotiationQuery) (*NegotiationResult, error) {
	suggestions := make([]string, len(fallbackSuggestions))
	copy(suggestions, fallbackSuggestions)

	return &NegotiationResult{
		Suggestions: suggestions,
		Tone:        "professional",
		Context:     "Generic polite responses",
	}, nil
}
