package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"mandi-gateway/internal/ai"
	"mandi-gateway/internal/cache"
)

// decodeBody parses the JSON request body into dst. Malformed JSON is
// a validation failure, not an internal error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationError, "body: invalid JSON", "")
		return false
	}
	return true
}

// providerContext bounds the collaborator call independently of the
// client connection so a slow model cannot hold the request forever.
func (s *Server) providerContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.GeminiTimeout())
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Normalize()

	if err := validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := ai.GuardInput(req.Text, s.cfg.MaxInputLength); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationError,
			"text: "+err.Error(), "text")
		return
	}

	key := cache.Key("translate", req.SourceLanguage, req.TargetLanguage, req.Context, req.Text)
	var cached TranslationResponse
	if s.respCache.Get(r.Context(), key, &cached) {
		writeSuccess(w, cached)
		return
	}

	query := ai.TranslationQuery{
		Text:           req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Context:        req.Context,
	}

	ctx, cancel := s.providerContext(r)
	defer cancel()

	result, err := s.provider.Translate(ctx, query)
	if err != nil {
		s.log.Warn("translation provider failed, using fallback", "error", err)
		result, _ = s.fallback.Translate(ctx, query)
	}

	resp := TranslationResponse{
		TranslatedText: result.TranslatedText,
		OriginalText:   req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Confidence:     result.Confidence,
		ErrorFlag:      result.ErrorFlag,
	}

	if !resp.ErrorFlag {
		s.respCache.Set(r.Context(), key, resp, s.cfg.TranslationCacheTTL())
	}

	writeSuccess(w, resp)
}

func (s *Server) handlePriceSuggest(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Normalize()

	if err := validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	key := cache.Key("price-suggest", req.ProductName, req.Location,
		strconv.Itoa(req.Quantity), fmt.Sprintf("%g", req.CurrentPrice))
	var cached PriceResponse
	if s.respCache.Get(r.Context(), key, &cached) {
		writeSuccess(w, cached)
		return
	}

	query := ai.PriceQuery{
		ProductName:  req.ProductName,
		CurrentPrice: req.CurrentPrice,
		Quantity:     req.Quantity,
		Location:     req.Location,
	}

	ctx, cancel := s.providerContext(r)
	defer cancel()

	result, err := s.provider.SuggestPrice(ctx, query)
	if err != nil || !result.Valid() {
		if err != nil {
			s.log.Warn("price provider failed, using fallback", "product", req.ProductName, "error", err)
		} else {
			s.log.Warn("price provider returned invalid band, using fallback", "product", req.ProductName)
		}
		result, _ = s.fallback.SuggestPrice(ctx, query)
	}

	resp := PriceResponse{
		MinPrice:         result.MinPrice,
		MaxPrice:         result.MaxPrice,
		RecommendedPrice: result.RecommendedPrice,
		Reasoning:        result.Reasoning,
		MarketTrend:      result.MarketTrend,
		Confidence:       result.Confidence,
	}

	s.respCache.Set(r.Context(), key, resp, s.cfg.PriceCacheTTL())

	writeSuccess(w, resp)
}

func (s *Server) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	var req NegotiationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Normalize()

	if err := validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := ai.GuardInput(req.BuyerMessage, s.cfg.MaxInputLength); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationError,
			"buyer_message: "+err.Error(), "buyer_message")
		return
	}
	req.ClampHistory()

	query := ai.NegotiationQuery{
		ProductName:    req.ProductName,
		VendorPrice:    req.VendorPrice,
		BuyerMessage:   req.BuyerMessage,
		History:        req.ConversationHistory,
		VendorLanguage: req.VendorLanguage,
	}

	ctx, cancel := s.providerContext(r)
	defer cancel()

	result, err := s.provider.Negotiate(ctx, query)
	if err != nil {
		s.log.Warn("negotiation provider failed, using fallback", "product", req.ProductName, "error", err)
		result, _ = s.fallback.Negotiate(ctx, query)
	}

	writeSuccess(w, NegotiationResponse{
		Suggestions: result.Suggestions,
		Tone:        result.Tone,
		Context:     result.Context,
	})
}
