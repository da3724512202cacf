package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fasthttp/router"
	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	xhttp "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/http"
)

type SessionGateway interface {
	StartSession(ctx context.Context, userID int64) (json.RawMessage, error)
	SessionStatus(ctx context.Context, userID int64) (json.RawMessage, error)
	Disconnect(ctx context.Context, userID int64) (json.RawMessage, error)
}

// SessionHandler proxies session control to the WhatsApp bridge. The
// bridge's replies go through verbatim so the frontend sees the QR
// payload exactly as the bridge produced it.
type SessionHandler struct {
	gateway SessionGateway
}

func RegisterSessionRoutes(e *router.Group, h *SessionHandler) {
	e.POST("/session/start", h.StartSession)
	e.GET("/session/status", h.SessionStatus)
	e.POST("/session/disconnect", h.Disconnect)
}

func NewSessionHandler(gw SessionGateway) *SessionHandler {
	return &SessionHandler{gateway: gw}
}

func (h *SessionHandler) StartSession(ctx *xhttp.RequestCtx) {
	h.proxy(ctx, h.gateway.StartSession)
}

func (h *SessionHandler) SessionStatus(ctx *xhttp.RequestCtx) {
	h.proxy(ctx, h.gateway.SessionStatus)
}

func (h *SessionHandler) Disconnect(ctx *xhttp.RequestCtx) {
	h.proxy(ctx, h.gateway.Disconnect)
}

func (h *SessionHandler) proxy(ctx *xhttp.RequestCtx, call func(context.Context, int64) (json.RawMessage, error)) {
	userID, ok := identity(ctx)
	if !ok {
		return
	}

	reply, err := call(ctx, userID)
	if err != nil {
		writeGatewayError(ctx, err)
		return
	}

	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(200)
	ctx.Response.SetBodyRaw(reply)
}

// writeGatewayError maps a bridge failure without pretending it was
// our own: unreachable bridge is a 503, a bridge-side error keeps its
// status and body.
func writeGatewayError(ctx *xhttp.RequestCtx, err error) {
	if errors.Is(err, gateway.ErrGatewayUnavailable) {
		writeError(ctx, 503, "whatsapp gateway unavailable")
		return
	}

	var transportErr *gateway.TransportError
	if errors.As(err, &transportErr) {
		ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
		ctx.Response.SetStatusCode(transportErr.StatusCode)
		ctx.Response.SetBodyString(transportErr.Body)
		return
	}

	writeError(ctx, 500, "internal error")
}
