package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

var (
	// ErrAssistNotConfigured is returned when no API key is present.
	// Drafting is an optional assist; the rest of the system runs
	// without it.
	ErrAssistNotConfigured = errors.New("assist provider not configured")

	// ErrEmptyDraft marks a well-formed provider reply that carries no
	// usable text. Retrying won't produce a different answer.
	ErrEmptyDraft = errors.New("assist provider returned an empty draft")

	// ErrMalformedDraft marks a 2xx reply whose body could not be
	// decoded. Like an empty draft, a retry would only repeat it.
	ErrMalformedDraft = errors.New("assist provider returned an undecodable reply")
)

const assistSystemPrompt = "You write short, friendly WhatsApp marketing messages. " +
	"Reply with the message text only, no preamble and no markdown fences."

type AssistConfig struct {
	BaseURL string
	Model   string
	APIKey  string

	// Backoff starts here and doubles per attempt.
	InitialDelay time.Duration
	MaxAttempts  int

	RequestTimeout time.Duration
}

// AssistClient calls the hosted text-generation API that backs the
// "draft my message" button. Slow and occasionally flaky, hence the
// exponential backoff around every call.
type AssistClient struct {
	config *AssistConfig
	client *fasthttp.Client
}

func NewAssistClient(config *AssistConfig) (*AssistClient, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash-preview-09-2025"
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 5
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 60 * time.Second
	}

	client := &fasthttp.Client{
		ReadTimeout:         config.RequestTimeout,
		WriteTimeout:        config.RequestTimeout,
		MaxIdleConnDuration: 60 * time.Second,
	}

	return &AssistClient{config: config, client: client}, nil
}

// Enabled reports whether drafting can be offered at all.
func (c *AssistClient) Enabled() bool {
	return c.config.APIKey != ""
}

type assistRequest struct {
	SystemInstruction *assistContent  `json:"systemInstruction,omitempty"`
	Contents          []assistContent `json:"contents"`
}

type assistContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []assistPart `json:"parts"`
}

type assistPart struct {
	Text string `json:"text"`
}

type assistResponse struct {
	Candidates []struct {
		Content assistContent `json:"content"`
	} `json:"candidates"`
}

// Draft asks the provider for message copy matching the prompt. Server
// errors and transport failures are retried with exponential backoff;
// client errors and empty replies fail immediately because a retry
// would only repeat them.
func (c *AssistClient) Draft(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrAssistNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	body, err := json.Marshal(assistRequest{
		SystemInstruction: &assistContent{Parts: []assistPart{{Text: assistSystemPrompt}}},
		Contents: []assistContent{
			{Role: "user", Parts: []assistPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal assist request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.config.BaseURL, c.config.Model, c.config.APIKey)

	backoff := retry.WithMaxRetries(uint64(c.config.MaxAttempts-1), retry.NewExponential(c.config.InitialDelay))

	var draft string
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, err := c.generate(ctx, url, body)
		if err != nil {
			var transportErr *TransportError
			if errors.As(err, &transportErr) && transportErr.StatusCode < 500 {
				return err
			}
			if errors.Is(err, ErrEmptyDraft) || errors.Is(err, ErrMalformedDraft) {
				return err
			}
			logger.Warn("assist call failed, will retry", "error", err)
			return retry.RetryableError(err)
		}
		draft = text
		return nil
	})
	if err != nil {
		return "", err
	}

	return draft, nil
}

func (c *AssistClient) generate(ctx context.Context, url string, body []byte) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok || deadline.After(time.Now().Add(c.config.RequestTimeout)) {
		deadline = time.Now().Add(c.config.RequestTimeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("assist request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode > 299 {
		return "", &TransportError{StatusCode: statusCode, Body: string(resp.Body())}
	}

	var parsed assistResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyDraft
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyDraft
	}

	return text, nil
}
