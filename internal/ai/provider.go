// Package ai is the seam to the external inference collaborator. The
// gateway never depends on the collaborator existing: every call site
// pairs a Provider with the deterministic Fallback.
package ai

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse   = errors.New("empty model response")
	ErrMalformedResult = errors.New("malformed model result")
	ErrInvalidInput    = errors.New("invalid input")
)

// TranslationQuery asks for text in another language.
type TranslationQuery struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	Context        string
}

// TranslationResult carries the translated text. ErrorFlag marks a
// degraded (fallback) answer; the HTTP status stays 200 either way.
type TranslationResult struct {
	TranslatedText string
	Confidence     float64
	ErrorFlag      bool
}

// PriceQuery asks for a market price band for a product.
type PriceQuery struct {
	ProductName  string
	CurrentPrice float64
	Quantity     int
	Location     string
}

// PriceResult is a price band with MinPrice <= RecommendedPrice <=
// MaxPrice and MaxPrice > MinPrice.
type PriceResult struct {
	MinPrice         float64 `json:"min_price"`
	MaxPrice         float64 `json:"max_price"`
	RecommendedPrice float64 `json:"recommended_price"`
	Reasoning        string  `json:"reasoning"`
	MarketTrend      string  `json:"market_trend"`
	Confidence       float64 `json:"confidence"`
}

// NegotiationQuery asks for vendor reply suggestions.
type NegotiationQuery struct {
	ProductName    string
	VendorPrice    float64
	BuyerMessage   string
	History        []string
	VendorLanguage string
}

// NegotiationResult holds one to three reply suggestions.
type NegotiationResult struct {
	Suggestions []string `json:"suggestions"`
	Tone        string   `json:"tone"`
	Context     string   `json:"context"`
}

// Provider generates translations, price analysis and negotiation
// suggestions. Implementations must respect ctx deadlines; any error
// means the caller should use fallback data.
type Provider interface {
	Translate(ctx context.Context, q TranslationQuery) (*TranslationResult, error)
	SuggestPrice(ctx context.Context, q PriceQuery) (*PriceResult, error)
	Negotiate(ctx context.Context, q NegotiationQuery) (*NegotiationResult, error)
}

// Valid reports whether a price band satisfies its ordering invariant.
func (p *PriceResult) Valid() bool {
	return p.MinPrice > 0 &&
		p.MaxPrice > p.MinPrice &&
		p.RecommendedPrice >= p.MinPrice &&
		p.RecommendedPrice <= p.MaxPrice
}
