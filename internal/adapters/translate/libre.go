// Package translate calls a LibreTranslate-compatible HTTP endpoint.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/echolink/echolink/internal/domain"
)

var ErrEmptyResult = errors.New("empty translation result")

// Client implements core.Translator. Stateless; one POST per call, no
// retries. Failures degrade a single recipient's delivery upstream.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
	Translated     string `json:"translated"`
}

// Translate converts English text to targetLang.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	body, err := json.Marshal(request{
		Q:      text,
		Source: domain.DefaultLang,
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("translate status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translate decode: %w", err)
	}
	if out.TranslatedText != "" {
		return out.TranslatedText, nil
	}
	if out.Translated != "" {
		return out.Translated, nil
	}
	return "", ErrEmptyResult
}
