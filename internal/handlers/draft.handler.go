package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	xhttp "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/http"
)

type DraftAssist interface {
	Enabled() bool
	Draft(ctx context.Context, prompt string) (string, error)
}

type DraftHandler struct {
	assist DraftAssist
}

func RegisterDraftRoutes(e *router.Group, h *DraftHandler) {
	e.POST("/drafts/ai", h.CreateDraft)
}

func NewDraftHandler(assist DraftAssist) *DraftHandler {
	return &DraftHandler{assist: assist}
}

type createDraftRequest struct {
	Prompt string `json:"prompt"`
}

type createDraftResponse struct {
	Draft string `json:"draft"`
}

func (h *DraftHandler) CreateDraft(ctx *xhttp.RequestCtx) {
	if _, ok := identity(ctx); !ok {
		return
	}

	var req createDraftRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Prompt == "" {
		writeError(ctx, 400, "prompt is required")
		return
	}

	draft, err := h.assist.Draft(ctx, req.Prompt)
	if err != nil {
		writeDraftError(ctx, err)
		return
	}

	writeJSON(ctx, 200, createDraftResponse{Draft: draft})
}

func writeDraftError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, gateway.ErrAssistNotConfigured):
		writeError(ctx, 503, "drafting assist is not configured")
	case errors.Is(err, gateway.ErrEmptyDraft), errors.Is(err, gateway.ErrMalformedDraft):
		writeError(ctx, 502, "assist provider returned no text")
	default:
		var transportErr *gateway.TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode >= 400 && transportErr.StatusCode < 500 {
			writeError(ctx, 502, "assist provider rejected the request")
			return
		}
		writeError(ctx, 502, "assist provider unavailable")
	}
}
