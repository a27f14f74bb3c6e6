package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/dasmlab/receitas/pkg/chunker"
)

const (
	// DefaultMyMemoryURL is the public MyMemory API.
	DefaultMyMemoryURL = "https://api.mymemory.translated.net"
	// DefaultMyMemoryTimeout is the default timeout for HTTP requests.
	DefaultMyMemoryTimeout = 15 * time.Second
)

// MyMemoryClient implements the Translator interface using the MyMemory API.
// The free tier rejects queries longer than chunker.DefaultMaxQueryLength
// characters, which is why long texts go through ChunkedTranslator.
type MyMemoryClient struct {
	baseURL    string
	email      string
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *MetricsCollector
}

// NewMyMemoryClient creates a new MyMemory client. email is optional; when set
// it is sent as the "de" parameter, which raises the daily quota.
func NewMyMemoryClient(baseURL, email string, timeout time.Duration, logger *logrus.Logger) *MyMemoryClient {
	if baseURL == "" {
		baseURL = DefaultMyMemoryURL
	}
	if timeout <= 0 {
		timeout = DefaultMyMemoryTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &MyMemoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: NewMetricsCollector(string(EngineMyMemory)),
	}
}

// Translate translates text from source language to target language.
func (c *MyMemoryClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"text_length": chunker.Len(text),
	}).Debug("Translating text with MyMemory")

	startTime := time.Now()
	translated, err := c.translate(ctx, text, sourceLang, targetLang)
	c.metrics.RecordTranslationRequest(time.Since(startTime), err == nil, chunker.Len(text))
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"source_lang": sourceLang,
			"target_lang": targetLang,
		}).Error("MyMemory translation failed")
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Translation completed successfully")

	return translated, nil
}

func (c *MyMemoryClient) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", sourceLang+"|"+targetLang)
	if c.email != "" {
		params.Set("de", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("decode response: invalid JSON")
	}

	// responseStatus is a number on success but a string on some quota errors;
	// gjson reads both.
	if status := gjson.GetBytes(body, "responseStatus"); status.Exists() && status.Int() != http.StatusOK {
		details := gjson.GetBytes(body, "responseDetails").String()
		return "", fmt.Errorf("mymemory status %d: %s", status.Int(), details)
	}

	translated := gjson.GetBytes(body, "responseData.translatedText")
	if !translated.Exists() || translated.Type != gjson.String {
		return "", fmt.Errorf("decode response: missing responseData.translatedText")
	}

	return decodeEntities(translated.String()), nil
}

// decodeEntities turns the HTML entities MyMemory sometimes returns
// ("&#39;", "&quot;") back into plain text.
func decodeEntities(s string) string {
	if !strings.ContainsAny(s, "&<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

// CheckHealth verifies that MyMemory answers a trivial query.
func (c *MyMemoryClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Checking MyMemory health")

	if _, err := c.translate(ctx, "ok", "en", "pt"); err != nil {
		c.logger.WithError(err).Error("MyMemory health check failed")
		return fmt.Errorf("health check failed: %w", err)
	}

	c.logger.Debug("MyMemory health check passed")
	return nil
}

// SupportedLanguages returns the languages this service routes through MyMemory.
// MyMemory has no listing endpoint.
func (c *MyMemoryClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"pt", "en", "es", "fr", "it", "de"}, nil
}
