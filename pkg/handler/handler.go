// Package handler provides the Lambda handler that exposes the chunked
// translator as a function.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/receitas/pkg/translate"
)

// Request is the input to the translator function. Text and Texts may be
// combined; Text is translated first.
type Request struct {
	Text       string   `json:"text,omitempty"`
	Texts      []string `json:"texts,omitempty"`
	SourceLang string   `json:"sourceLang"`
	TargetLang string   `json:"targetLang"`
}

// Response is the output of the translator function. Its translations and
// error fields match translate.LambdaResponse so the function can back the
// lambda engine of another deployment.
type Response struct {
	TranslatedText string   `json:"translatedText,omitempty"`
	Translations   []string `json:"translations,omitempty"`
	UnitsProcessed int      `json:"unitsProcessed,omitempty"`
	Fallbacks      int      `json:"fallbacks,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// TextTranslator is satisfied by *translate.ChunkedTranslator.
type TextTranslator interface {
	TranslateUnits(ctx context.Context, text, sourceLang, targetLang string, progress translate.ProgressFunc) translate.Result
}

// Handler translates requests with a chunked translator.
type Handler struct {
	translator TextTranslator
	logger     *logrus.Logger
}

// New creates a handler.
func New(translator TextTranslator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{translator: translator, logger: logger}
}

// Handle processes a translation request. Invalid requests are reported in
// Response.Error rather than as a function error so callers get a payload.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return &Response{Error: err.Error()}, nil
	}
	if req.SourceLang == "" {
		req.SourceLang = translate.AutoDetect
	}

	resp := &Response{}

	if req.Text != "" {
		res := h.translator.TranslateUnits(ctx, req.Text, req.SourceLang, req.TargetLang, nil)
		resp.TranslatedText = res.String()
		resp.UnitsProcessed += len(res.Outcomes)
		resp.Fallbacks += res.Count(translate.Fallback)
	}

	if req.Texts != nil {
		resp.Translations = make([]string, 0, len(req.Texts))
		for _, text := range req.Texts {
			res := h.translator.TranslateUnits(ctx, text, req.SourceLang, req.TargetLang, nil)
			resp.Translations = append(resp.Translations, res.String())
			resp.UnitsProcessed += len(res.Outcomes)
			resp.Fallbacks += res.Count(translate.Fallback)
		}
	}

	h.logger.WithFields(logrus.Fields{
		"source_lang": req.SourceLang,
		"target_lang": req.TargetLang,
		"texts":       len(req.Texts),
		"units":       resp.UnitsProcessed,
		"fallbacks":   resp.Fallbacks,
	}).Info("Lambda translation completed")

	return resp, nil
}

// validateRequest checks the request is valid.
func validateRequest(req Request) error {
	if req.TargetLang == "" {
		return fmt.Errorf("targetLang is required")
	}
	if req.SourceLang != "" && strings.EqualFold(req.SourceLang, req.TargetLang) {
		return fmt.Errorf("sourceLang and targetLang must be different")
	}
	if req.Text == "" && req.Texts == nil {
		return fmt.Errorf("text or texts is required")
	}
	return nil
}
