// Package deepl provides a translator backed by the DeepL REST API.
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	freeEndpoint = "https://api-free.deepl.com/v2/translate"
	paidEndpoint = "https://api.deepl.com/v2/translate"
)

// Translator implements engine.Translator against the DeepL v2 API.
type Translator struct {
	endpoint string
	authKey  string
	client   *http.Client
}

// New creates a DeepL translator. Keys issued for the free tier carry the
// ":fx" suffix and are routed to the free endpoint; free forces that
// routing regardless of the key shape.
func New(authKey string, free bool) *Translator {
	endpoint := paidEndpoint
	if free || strings.HasSuffix(authKey, ":fx") {
		endpoint = freeEndpoint
	}
	return &Translator{
		endpoint: endpoint,
		authKey:  authKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate renders text into targetLang. sourceLang may be empty to let
// DeepL detect the source language.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(primarySubtag(targetLang)))
	if sourceLang != "" {
		form.Set("source_lang", strings.ToUpper(primarySubtag(sourceLang)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+t.authKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("translate: empty response")
	}
	return parsed.Translations[0].Text, nil
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (t *Translator) Close() error {
	return nil
}

// primarySubtag reduces a BCP 47 tag like "en-US" to its primary subtag.
func primarySubtag(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}
