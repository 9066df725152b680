package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
)

// GeminiClient calls the Generative Language REST API directly.
type GeminiClient interface {
	Generate(ctx context.Context, prompt string) (*GeminiResult, error)
	Model() string
}

type GeminiResult struct {
	Text  string
	Usage GeminiUsage
}

type GeminiUsage struct {
	PromptTokens    int `json:"prompt_tokens"`
	ResponseTokens  int `json:"response_tokens"`
	TotalTokenCount int `json:"total_tokens"`
}

type geminiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	temperature float64
	maxRetries  int
}

func NewGeminiClient(log *logger.Logger) (GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeoutSec := 180
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 4
	if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &geminiClient{
		log:         log.With("service", "GeminiClient"),
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		temperature: 0.2,
		maxRetries:  maxRetries,
	}, nil
}

func (c *geminiClient) Model() string { return c.model }

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// Caller cancellation is checked separately in the call loop; a hit
		// here means our own client timeout fired.
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body any, out any) error {
	// exponential backoff: 1s, 2s, 4s, 8s (cap 10s)
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Gemini request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *geminiClient) Generate(ctx context.Context, prompt string) (*GeminiResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("empty prompt")
	}

	req := geminiGenerateRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{Temperature: c.temperature},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(c.model))

	var resp geminiGenerateResponse
	if err := c.do(ctx, path, req, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		break
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no candidate text in gemini response")
	}

	return &GeminiResult{
		Text: text.String(),
		Usage: GeminiUsage{
			PromptTokens:    resp.UsageMetadata.PromptTokenCount,
			ResponseTokens:  resp.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount: resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
