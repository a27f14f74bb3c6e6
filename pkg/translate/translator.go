package translate

import (
	"context"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// AutoDetect asks the mapper to detect the source language from the text.
const AutoDetect = "auto"

// Translator defines the interface for machine translation backends.
// This abstraction allows switching between MyMemory, LibreTranslate and a
// Lambda-hosted model without changing the chunked translator or the recipe service.
type Translator interface {
	// Translate translates text from source language to target language.
	// sourceLang and targetLang should be in ISO 639-1 format (e.g., "pt", "en").
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// CheckHealth verifies that the translation backend is ready and operational.
	CheckHealth(ctx context.Context) error

	// SupportedLanguages returns a list of language codes supported by this backend.
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// LanguageMapper handles conversion between user supplied language codes and
// backend codes. Callers send BCP 47 tags like "pt-BR" or plain "PT", while
// backends expect ISO 639-1 codes like "pt".
type LanguageMapper struct{}

// NewLanguageMapper creates a new language mapper instance.
func NewLanguageMapper() *LanguageMapper {
	return &LanguageMapper{}
}

// ToBackendCode converts a language tag to backend format.
// Examples:
//   - "PT" -> "pt"
//   - "pt-BR" -> "pt"
//   - "en_US" -> "en"
func (lm *LanguageMapper) ToBackendCode(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, AutoDetect) {
		return AutoDetect
	}

	parsed, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		// Unknown to CLDR; fall back to the primary subtag as given.
		lang := strings.ToLower(tag)
		if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
			lang = lang[:idx]
		}
		return lang
	}

	base, _ := parsed.Base()
	return base.String()
}

// Resolve maps tag to a backend code, detecting it from text when the tag
// asks for auto detection. fallback is used when detection gives nothing.
func (lm *LanguageMapper) Resolve(tag, text, fallback string) string {
	code := lm.ToBackendCode(tag)
	if code != AutoDetect {
		return code
	}
	if detected := DetectLanguage(text); detected != "" {
		return detected
	}
	return lm.ToBackendCode(fallback)
}

// DetectLanguage guesses the ISO 639-1 code of text. It returns "" when the
// text is too short or the guess is unreliable.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
