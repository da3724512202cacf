package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	// ErrGatewayUnavailable marks a connect/read failure or timeout
	// against the WhatsApp bridge. Callers surface it as a 503, never
	// as a crash.
	ErrGatewayUnavailable = errors.New("whatsapp gateway unavailable")
)

// TransportError is a delivery failure with the gateway's own words
// preserved, so the dispatcher can store them per recipient.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string

	// One message to one phone. The source used 15s here.
	SendTimeout time.Duration
	// Session start/disconnect, slower because the bridge may be
	// spinning a browser session up or down.
	ControlTimeout time.Duration
	// Status polls are cheap and frequent.
	StatusTimeout time.Duration

	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

// Client is the thin transport to the external WhatsApp gateway. One
// session per user lives on the bridge side; every call carries the
// owning user's identity.
type Client struct {
	config *Config
	client *fasthttp.Client
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if config.SendTimeout == 0 {
		config.SendTimeout = 15 * time.Second
	}
	if config.ControlTimeout == 0 {
		config.ControlTimeout = 30 * time.Second
	}
	if config.StatusTimeout == 0 {
		config.StatusTimeout = 10 * time.Second
	}
	if config.MaxConns == 0 {
		config.MaxConns = 512
	}

	client := &fasthttp.Client{
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         config.ControlTimeout,
		WriteTimeout:        config.ControlTimeout,
		MaxIdleConnDuration: 60 * time.Second,
		ReadBufferSize:      config.ReadBufferSize,
		WriteBufferSize:     config.WriteBufferSize,
	}

	logger.Info("WhatsApp gateway client initialized", "base_url", config.BaseURL, "send_timeout", config.SendTimeout)

	return &Client{config: config, client: client}, nil
}

type SendMessageRequest struct {
	UserID  int64  `json:"userId"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// SendMessage transmits one message to one phone number. Any non-2xx
// status, connect failure or timeout is a delivery failure for that
// recipient and never aborts the batch.
func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	_, err = c.doRequest(ctx, "POST", "/send-message", body, c.config.SendTimeout)
	return err
}

// StartSession asks the bridge to open (or resume) the user's session.
// The raw bridge reply is proxied through untouched; it carries the QR
// payload on first link.
func (c *Client) StartSession(ctx context.Context, userID int64) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]int64{"userId": userID})
	return c.doRequest(ctx, "POST", "/start", body, c.config.ControlTimeout)
}

func (c *Client) SessionStatus(ctx context.Context, userID int64) (json.RawMessage, error) {
	path := fmt.Sprintf("/status?userId=%d", userID)
	return c.doRequest(ctx, "GET", path, nil, c.config.StatusTimeout)
}

func (c *Client) Disconnect(ctx context.Context, userID int64) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]int64{"userId": userID})
	return c.doRequest(ctx, "POST", "/disconnect", body, c.config.ControlTimeout)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, timeout time.Duration) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok || deadline.After(time.Now().Add(timeout)) {
		deadline = time.Now().Add(timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode > 299 {
		return nil, &TransportError{StatusCode: statusCode, Body: string(resp.Body())}
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}
