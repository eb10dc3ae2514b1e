// ABOUTME: HTTP client for the external translation and transcription service
// ABOUTME: Wraps resty with timeouts and typed request/response payloads

package translator

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Translator converts text between languages and transcribes voice audio.
// Implementations must be safe for concurrent use.
type Translator interface {
	// Translate returns text rendered in the target language.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// Transcribe returns the text spoken in an audio recording.
	Transcribe(ctx context.Context, audio []byte, filename, lang string) (string, error)
}

// Client calls a remote translation service over HTTP.
type Client struct {
	http *resty.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a translation service client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("translator base URL cannot be empty")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout)
	if opts.APIKey != "" {
		http.SetAuthToken(opts.APIKey)
	}

	return &Client{http: http}, nil
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Translate renders text into the target language via the remote service.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var result translateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(translateRequest{Text: text, Source: sourceLang, Target: targetLang}).
		SetResult(&result).
		ForceContentType("application/json").
		Post("/v1/translate")

	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("translate error: status %s, body: %s", resp.Status(), resp.String())
	}

	return result.TranslatedText, nil
}

// Transcribe uploads voice audio and returns the spoken text.
// lang hints the spoken language; the service may ignore it.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, lang string) (string, error) {
	var result transcribeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("audio", filename, bytes.NewReader(audio)).
		SetFormData(map[string]string{"language": lang}).
		SetResult(&result).
		ForceContentType("application/json").
		Post("/v1/transcribe")

	if err != nil {
		return "", fmt.Errorf("transcribe request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("transcribe error: status %s, body: %s", resp.Status(), resp.String())
	}

	return result.Transcript, nil
}
