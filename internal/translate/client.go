// Package translate provides the client for the external translation service
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	yerrors "github.com/puritysb/yomilingo/internal/errors"
	"github.com/puritysb/yomilingo/internal/resilience"
)

// Service translates a batch of source texts into the target language.
// Results map source text to its translation; sources the service could not
// translate are simply absent from the map.
type Service interface {
	TranslateBatch(ctx context.Context, sourceLang string, texts []string) (map[string]string, error)
}

// Client is an HTTP client for the translation service, wrapped in retry
// and circuit-breaker protection.
type Client struct {
	url    string
	target string
	httpc  *http.Client
	brk    *resilience.Breaker
	retry  resilience.RetryConfig
}

// NewClient creates a translation client for the given endpoint.
func NewClient(url, targetLang string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		target: targetLang,
		httpc:  &http.Client{Timeout: timeout},
		brk:    resilience.New(resilience.FastConfig()),
		retry:  resilience.TranslatorRetryConfig(),
	}
}

type translateRequest struct {
	Texts  []string `json:"texts"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`
}

type translateResponse struct {
	Translations map[string]string `json:"translations"`
}

// TranslateBatch implements Service.
func (c *Client) TranslateBatch(ctx context.Context, sourceLang string, texts []string) (map[string]string, error) {
	if len(texts) == 0 {
		return map[string]string{}, nil
	}

	var out map[string]string
	err := resilience.Retry(ctx, c.retry, func() error {
		results, err := resilience.ExecuteWithResult(c.brk, func() (map[string]string, error) {
			return c.post(ctx, sourceLang, texts)
		})
		if err != nil {
			return err
		}
		out = results
		return nil
	})
	return out, err
}

func (c *Client) post(ctx context.Context, sourceLang string, texts []string) (map[string]string, error) {
	body, err := json.Marshal(translateRequest{
		Texts:  texts,
		Source: sourceLang,
		Target: c.target,
	})
	if err != nil {
		return nil, yerrors.Wrap(err, yerrors.CodeInternal, "encoding translate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, yerrors.Wrap(err, yerrors.CodeInternal, "building translate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, yerrors.Wrap(err, yerrors.CodeTranslateUnavailable, "translate request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, yerrors.New(yerrors.CodeRateLimited, "translation service throttled")
	case resp.StatusCode >= 500:
		return nil, yerrors.Newf(yerrors.CodeTranslateUnavailable, "translation service returned %d", resp.StatusCode)
	default:
		return nil, yerrors.Newf(yerrors.CodeTranslateBadResponse, "translation service returned %d", resp.StatusCode)
	}

	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, yerrors.Wrap(err, yerrors.CodeTranslateBadResponse, "decoding translate response")
	}
	if decoded.Translations == nil {
		return nil, yerrors.New(yerrors.CodeTranslateBadResponse, "translate response missing translations")
	}
	return decoded.Translations, nil
}
