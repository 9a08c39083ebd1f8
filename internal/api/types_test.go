package api

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTranslationRequest_Normalize(t *testing.T) {
	r := TranslationRequest{
		Text:           "  fresh tomatoes  ",
		SourceLanguage: " HI ",
		TargetLanguage: "En",
	}
	r.Normalize()

	assert.Equal(t, "fresh tomatoes", r.Text)
	assert.Equal(t, "hi", r.SourceLanguage)
	assert.Equal(t, "en", r.TargetLanguage)
}

func TestPriceRequest_Normalize(t *testing.T) {
	r := PriceRequest{ProductName: "  cherry TOMATO "}
	r.Normalize()

	assert.Equal(t, "Cherry Tomato", r.ProductName)
	assert.Equal(t, "India", r.Location, "empty location defaults")

	r = PriceRequest{ProductName: "onion", Location: "Pune"}
	r.Normalize()
	assert.Equal(t, "Pune", r.Location)
}

func TestNegotiationRequest_Normalize(t *testing.T) {
	history := make([]string, 8)

	r := NegotiationRequest{
		ProductName:         " tomato ",
		BuyerMessage:        " too expensive ",
		ConversationHistory: history,
	}
	r.Normalize()

	assert.Equal(t, "tomato", r.ProductName)
	assert.Equal(t, "too expensive", r.BuyerMessage)
	assert.Len(t, r.ConversationHistory, 8, "history is left for validation to bound")
	assert.Equal(t, "en", r.VendorLanguage, "vendor language defaults to English")
}

func TestNegotiationRequest_ClampHistory(t *testing.T) {
	history := make([]string, 8)
	for i := range history {
		history[i] = strings.Repeat("x", 300)
	}

	r := NegotiationRequest{ConversationHistory: history}
	r.ClampHistory()

	assert.Len(t, r.ConversationHistory, 5, "only the most recent messages are kept")
	for _, msg := range r.ConversationHistory {
		assert.LessOrEqual(t, len(msg), 200)
	}
}

func TestNegotiationRequest_ClampHistoryKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("न", 250)

	r := NegotiationRequest{ConversationHistory: []string{long}}
	r.ClampHistory()

	got := r.ConversationHistory[0]
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 200, utf8.RuneCountInString(got))
}

func TestTitleCase_MultibyteFirstRune(t *testing.T) {
	assert.Equal(t, "Éclair", titleCase("éclair"))

	got := titleCase("टमाटर fresh")
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "टमाटर")
}
