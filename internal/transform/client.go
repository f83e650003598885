// Package transform sends a short excerpt of the loaded audio to a remote
// text-prompted audio model and returns whatever audio it produces.
package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultTimeout  = 60 * time.Second

	DefaultSystemInstruction = "You are a professional audio engineer and sound designer. " +
		"You accept input audio and transform it according to the user's creative prompt. " +
		"Return high-quality audio."

	snippetMimeType = "audio/wav"
	maxErrorBody    = 4 << 10
)

type Config struct {
	Endpoint          string
	Model             string
	APIKey            string
	Timeout           time.Duration
	SnippetLength     time.Duration
	SystemInstruction string
}

// Result is the audio returned by the service, passed through untouched.
type Result struct {
	Data     []byte
	MimeType string
}

type Client struct {
	cfg  Config
	http *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = DefaultSystemInstruction
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: logger.Transport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Instruction is the text part sent alongside the audio.
func Instruction(prompt string) string {
	return fmt.Sprintf("Instructions: %s. Return only the modified audio.", strings.TrimSpace(prompt))
}

// Transform uploads the first seconds of buf with prompt and returns the
// generated audio. It makes exactly one request; every failure is a
// RemoteTransformError except a missing buffer or prompt.
func (c *Client) Transform(ctx context.Context, buf *domain.SampleBuffer, prompt string) (*Result, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrInvalidInput)
	}
	if c.cfg.APIKey == "" {
		return nil, domain.NewRemoteTransformError("API key not configured", nil)
	}

	wav, err := EncodeSnippet(buf, c.cfg.SnippetLength)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: snippetMimeType, Data: base64.StdEncoding.EncodeToString(wav)}},
				{Text: Instruction(prompt)},
			},
		}},
		SystemInstruction: &content{Parts: []part{{Text: c.cfg.SystemInstruction}}},
		GenerationConfig:  generationConfig{ResponseModalities: []string{"AUDIO"}},
	})
	if err != nil {
		return nil, domain.NewRemoteTransformError("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(), bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewRemoteTransformError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewRemoteTransformError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewRemoteTransformError(statusDetails(resp), nil)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.NewRemoteTransformError("decode response", err)
	}

	result, err := firstAudio(decoded)
	if err != nil {
		return nil, err
	}

	logger.Info("Remote transform complete",
		logger.String("model", c.cfg.Model),
		logger.Int("bytes_sent", len(wav)),
		logger.Int("bytes_received", len(result.Data)),
		logger.String("mime_type", result.MimeType),
		logger.Duration("duration", time.Since(start)))

	return result, nil
}

func (c *Client) endpointURL() string {
	return strings.TrimRight(c.cfg.Endpoint, "/") +
		"/v1beta/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"
}

func firstAudio(resp generateResponse) (*Result, error) {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, domain.NewRemoteTransformError("decode inline audio", err)
			}
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = snippetMimeType
			}
			return &Result{Data: data, MimeType: mime}, nil
		}
	}
	return nil, domain.NewRemoteTransformError("no audio data returned", nil)
}

func statusDetails(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var ae apiError
	if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, ae.Error.Message)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
