package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/models"
	"github.com/llm-translator-go/pkg/markdown"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxRetryAfter caps a server supplied Retry-After delay.
const maxRetryAfter = 30 * time.Second

// Prompt is the system prompt a translation runs with. ID takes part in
// request fingerprints.
type Prompt struct {
	ID     string
	System string
}

// Service represents the translation client interface
type Service interface {
	Translate(ctx context.Context, text string, prompt Prompt, model string) (string, error)
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	timeout     time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	jitter      func() time.Duration

	autoSplit        bool
	chunkSize        int
	chunkConcurrency int
	stripMarkdown    bool

	httpClient *http.Client
	metrics    *middleware.Metrics
	logger     *logrus.Logger
}

// NewClient creates a translation client
func NewClient(cfg *config.Config, metrics *middleware.Metrics, logger *logrus.Logger) *Client {
	maxJitter := cfg.API.Jitter
	jitter := func() time.Duration {
		if maxJitter <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(maxJitter)))
	}

	logger.WithFields(logrus.Fields{
		"baseURL": cfg.API.BaseURL,
		"model":   cfg.API.Model,
	}).Info("Translation client initialized")

	return &Client{
		baseURL:          strings.TrimSuffix(cfg.API.BaseURL, "/"),
		apiKey:           cfg.API.APIKey,
		model:            cfg.API.Model,
		temperature:      cfg.API.Temperature,
		maxRetries:       cfg.API.MaxRetries,
		timeout:          cfg.API.Timeout,
		backoffBase:      cfg.API.BackoffBase,
		backoffMax:       cfg.API.BackoffMax,
		jitter:           jitter,
		autoSplit:        cfg.Behavior.AutoSplitLongText,
		chunkSize:        cfg.Behavior.ChunkSize,
		chunkConcurrency: max(cfg.Behavior.ChunkConcurrency, 1),
		stripMarkdown:    cfg.Behavior.StripMarkdown,
		httpClient:       &http.Client{},
		metrics:          metrics,
		logger:           logger,
	}
}

// Model returns the default model used when Translate gets an empty one.
func (c *Client) Model() string { return c.model }

// Translate translates text with the given prompt. Text above the chunk
// size is split and translated piecewise when auto split is enabled; a
// failed chunk fails the whole call.
func (c *Client) Translate(ctx context.Context, text string, prompt Prompt, model string) (string, error) {
	if model == "" {
		model = c.model
	}
	if c.apiKey == "" {
		return "", &APIError{Kind: KindAuth, Message: "api key is not configured"}
	}

	var (
		result string
		err    error
	)
	if c.autoSplit && utf8.RuneCountInString(text) > c.chunkSize {
		result, err = c.translateChunks(ctx, Split(text, c.chunkSize), prompt, model)
	} else {
		result, err = c.translateWithRetry(ctx, text, prompt, model)
	}
	if err != nil {
		return "", err
	}

	if c.stripMarkdown {
		result = markdown.ToPlainText(result)
	}
	return result, nil
}

func (c *Client) translateChunks(ctx context.Context, chunks []Chunk, prompt Prompt, model string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"chunks":      len(chunks),
		"concurrency": c.chunkConcurrency,
	}).Info("Translating long text in chunks")

	results := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.chunkConcurrency)

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			results[chunk.Index] = chunk.Text
			continue
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			out, err := c.translateWithRetry(gctx, chunk.Text, prompt, model)
			if err != nil {
				return fmt.Errorf("chunk %d of %d: %w", chunk.Index+1, len(chunks), err)
			}
			results[chunk.Index] = strings.TrimSpace(out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", Cancelled(err)
	}
	return Join(chunks, results), nil
}

// translateWithRetry retries transient failures with exponential backoff.
// Cancellation is observed before each attempt, while an attempt is in
// flight and during the backoff wait.
func (c *Client) translateWithRetry(ctx context.Context, text string, prompt Prompt, model string) (string, error) {
	var lastErr *APIError

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", Cancelled(err)
		}

		response, err := c.attempt(ctx, text, prompt, model, attempt)
		if err == nil {
			return response, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = &APIError{Kind: KindTransport, Err: err}
		}
		apiErr.Attempts = attempt
		if apiErr.Kind == KindCancelled || !apiErr.Transient() {
			return "", apiErr
		}
		lastErr = apiErr

		if attempt < c.maxRetries {
			waitTime := c.backoff(attempt, apiErr.RetryAfter)
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   apiErr.Error(),
				"model":   model,
				"wait":    waitTime,
			}).Warn("Translation request failed, retrying...")
			if c.metrics != nil {
				c.metrics.RecordRetry(apiErr.Kind.String())
			}

			select {
			case <-ctx.Done():
				return "", Cancelled(ctx.Err())
			case <-time.After(waitTime):
			}
		}
	}

	return "", lastErr
}

// backoff returns base*2^(attempt-1) capped at backoffMax plus jitter, or
// the server's Retry-After when it sent one.
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, maxRetryAfter)
	}
	wait := c.backoffBase << uint(attempt-1)
	if c.backoffMax > 0 && (wait > c.backoffMax || wait <= 0) {
		wait = c.backoffMax
	}
	return wait + c.jitter()
}

type attemptResult struct {
	text string
	err  error
}

// attempt runs one request. The request itself is detached from ctx so a
// cancelled caller never aborts it mid-flight; the caller just stops
// waiting for it.
func (c *Client) attempt(ctx context.Context, text string, prompt Prompt, model string, attempt int) (string, error) {
	done := make(chan attemptResult, 1)
	go func() {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		out, err := c.doRequest(reqCtx, text, prompt, model, attempt)
		done <- attemptResult{text: out, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", Cancelled(ctx.Err())
	}
}

// doRequest performs a single request attempt
func (c *Client) doRequest(ctx context.Context, text string, prompt Prompt, model string, attempt int) (string, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordAPIRequest(model, status, time.Since(start))
		}
	}()

	messages := []models.Message{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: text},
	}

	reqBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &APIError{Kind: KindRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &APIError{Kind: KindRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	c.logger.WithFields(logrus.Fields{
		"model":   model,
		"url":     url,
		"attempt": attempt,
		"chars":   utf8.RuneCountInString(text),
	}).Debug("Sending translation request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(fmt.Errorf("failed to read response: %w", err))
	}
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"attempt": attempt,
		}).Error("Translation request failed")
		return "", classifyStatus(resp, body)
	}

	// Parse response
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", &APIError{Kind: KindMalformed, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if result.Error != nil && result.Error.Message != "" {
		return "", &APIError{Kind: KindMalformed, Status: resp.StatusCode, Message: result.Error.Message}
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", &APIError{Kind: KindMalformed, Status: resp.StatusCode, Message: "no translation in response"}
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func classifyTransportError(err error) *APIError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Kind: KindTimeout, Err: err}
	}
	return &APIError{Kind: KindTransport, Err: err}
}

func classifyStatus(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(body)}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		apiErr.Kind = KindAuth
	case code == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case code == http.StatusRequestTimeout:
		apiErr.Kind = KindTimeout
	case code >= 500:
		apiErr.Kind = KindServer
	default:
		// Don't retry for client errors (4xx)
		apiErr.Kind = KindRequest
	}
	return apiErr
}

// errorMessage extracts the provider's error message, falling back to a
// truncated body.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
