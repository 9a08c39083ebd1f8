package api

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Error codes carried in the response envelope.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
)

// ErrorDetail describes a request failure.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// Envelope is the wire format of every HTTP response, success or not.
type Envelope struct {
	Success   bool         `json:"success"`
	Data      any          `json:"data"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp"`
}

// TranslationRequest is the body of POST /api/translate. Language
// codes are restricted to the supported set.
type TranslationRequest struct {
	Text           string `json:"text" validate:"required,min=1,max=1000"`
	SourceLanguage string `json:"source_language" validate:"required,oneof=en hi ta te bn mr gu kn ml pa"`
	TargetLanguage string `json:"target_language" validate:"required,oneof=en hi ta te bn mr gu kn ml pa"`
	Context        string `json:"context,omitempty" validate:"max=100"`
}

// Normalize trims the text and lowercases language codes before
// validation, mirroring what clients are allowed to be sloppy about.
func (r *TranslationRequest) Normalize() {
	r.Text = strings.TrimSpace(r.Text)
	r.SourceLanguage = strings.ToLower(strings.TrimSpace(r.SourceLanguage))
	r.TargetLanguage = strings.ToLower(strings.TrimSpace(r.TargetLanguage))
}

// TranslationResponse is the data payload for a translate call.
type TranslationResponse struct {
	TranslatedText string  `json:"translated_text"`
	OriginalText   string  `json:"original_text"`
	SourceLanguage string  `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	Confidence     float64 `json:"confidence"`
	ErrorFlag      bool    `json:"error_flag"`
}

// PriceRequest is the body of POST /api/price-suggest.
type PriceRequest struct {
	ProductName  string  `json:"product_name" validate:"required,min=1,max=100"`
	CurrentPrice float64 `json:"current_price,omitempty" validate:"omitempty,gt=0"`
	Quantity     int     `json:"quantity" validate:"required,gt=0,lte=10000"`
	Location     string  `json:"location,omitempty" validate:"max=100"`
}

// Normalize title-cases the product name and defaults the location.
func (r *PriceRequest) Normalize() {
	r.ProductName = titleCase(strings.TrimSpace(r.ProductName))
	if strings.TrimSpace(r.Location) == "" {
		r.Location = "India"
	}
}

// PriceResponse is the data payload for a price-suggest call. The
// band always satisfies min <= recommended <= max and max > min.
type PriceResponse struct {
	MinPrice         float64 `json:"min_price"`
	MaxPrice         float64 `json:"max_price"`
	RecommendedPrice float64 `json:"recommended_price"`
	Reasoning        string  `json:"reasoning"`
	MarketTrend      string  `json:"market_trend"`
	Confidence       float64 `json:"confidence"`
}

// NegotiationRequest is the body of POST /api/negotiate.
type NegotiationRequest struct {
	ProductName         string   `json:"product_name" validate:"required,min=1,max=100"`
	VendorPrice         float64  `json:"vendor_price" validate:"required,gt=0"`
	BuyerMessage        string   `json:"buyer_message" validate:"required,min=1,max=500"`
	ConversationHistory []string `json:"conversation_history,omitempty" validate:"max=10"`
	VendorLanguage      string   `json:"vendor_language,omitempty" validate:"omitempty,oneof=en hi ta te bn mr gu kn ml pa"`
}

// Normalize trims free-text fields and defaults the vendor language.
// The history list is left untouched so an oversized one still fails
// validation; ClampHistory prunes it afterwards.
func (r *NegotiationRequest) Normalize() {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.BuyerMessage = strings.TrimSpace(r.BuyerMessage)

	r.VendorLanguage = strings.ToLower(strings.TrimSpace(r.VendorLanguage))
	if r.VendorLanguage == "" {
		r.VendorLanguage = "en"
	}
}

// ClampHistory keeps the last five history messages, each cut to 200
// characters. Must run after validation.
func (r *NegotiationRequest) ClampHistory() {
	if len(r.ConversationHistory) > 5 {
		r.ConversationHistory = r.ConversationHistory[len(r.ConversationHistory)-5:]
	}
	for i, msg := range r.ConversationHistory {
		r.ConversationHistory[i] = truncateRunes(msg, 200)
	}
}

// NegotiationResponse is the data payload for a negotiate call.
type NegotiationResponse struct {
	Suggestions []string `json:"suggestions"`
	Tone        string   `json:"tone"`
	Context     string   `json:"context"`
}

// HealthResponse is the data payload of GET /health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Service       string          `json:"service"`
	Version       string          `json:"version"`
	Environment   string          `json:"environment"`
	Timestamp     time.Time       `json:"timestamp"`
	Features      map[string]bool `json:"features"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Connections   map[string]int  `json:"connections"`
}

// VersionResponse is the data payload of GET /version.
type VersionResponse struct {
	AppName     string `json:"app_name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// truncateRunes cuts s to at most n characters without splitting a
// multibyte rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
