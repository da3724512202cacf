package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/recipient"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/repository"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/services"
	xhttp "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, ownerID int64, req services.CampaignCreateRequest) (*model.Campaign, error)
	Get(ctx context.Context, ownerID, id int64) (*model.Campaign, error)
	List(ctx context.Context, ownerID int64, f model.CampaignFilter) ([]*model.Campaign, int64, error)
	Recipients(ctx context.Context, ownerID, campaignID int64) ([]*model.CampaignRecipient, error)
	QuotaUsage(ctx context.Context, ownerID int64) (*model.QuotaUsage, error)
}

type DirectoryService interface {
	Templates(ctx context.Context, ownerID int64) ([]*model.MessageTemplate, error)
	Contacts(ctx context.Context, ownerID int64) ([]*model.Contact, error)
}

type CampaignHandler struct {
	svc       CampaignService
	directory DirectoryService
}

func RegisterCampaignRoutes(e *router.Group, h *CampaignHandler) {
	e.POST("/campaigns", h.CreateCampaign)
	e.GET("/campaigns", h.ListCampaigns)
	e.GET("/campaigns/{id}", h.GetCampaign)
	e.GET("/campaigns/{id}/recipients", h.ListCampaignRecipients)
	e.GET("/quota", h.GetQuotaUsage)
	e.GET("/templates", h.ListTemplates)
	e.GET("/contacts", h.ListContacts)
}

func NewCampaignHandler(svc CampaignService, directory DirectoryService) *CampaignHandler {
	return &CampaignHandler{
		svc:       svc,
		directory: directory,
	}
}

type recipientSourceRequest struct {
	Type        string  `json:"type"` // manual | file | contacts
	Text        string  `json:"text,omitempty"`
	FileContent []byte  `json:"file_content,omitempty"` // base64 in JSON
	ContactIDs  []int64 `json:"contact_ids,omitempty"`
}

type attachmentRequest struct {
	FileName string `json:"file_name"`
}

type createCampaignRequest struct {
	Name            string                 `json:"name"`
	MessageContent  string                 `json:"message_content"`
	TemplateID      *int64                 `json:"template_id,omitempty"`
	ScheduledAt     *time.Time             `json:"scheduled_at,omitempty"`
	RecipientSource recipientSourceRequest `json:"recipient_source"`
	Attachments     []attachmentRequest    `json:"attachments,omitempty"`
}

type listCampaignsResponse struct {
	Items []*model.Campaign `json:"items"`
	Total int64             `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	var req createCampaignRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	src, err := toSource(req.RecipientSource)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}

	attachments := make([]services.AttachmentUpload, len(req.Attachments))
	for i, a := range req.Attachments {
		attachments[i] = services.AttachmentUpload{FileName: a.FileName}
	}

	campaign, err := h.svc.Create(ctx, ownerID, services.CampaignCreateRequest{
		Name:           req.Name,
		MessageContent: req.MessageContent,
		TemplateID:     req.TemplateID,
		Source:         src,
		ScheduledAt:    req.ScheduledAt,
		Attachments:    attachments,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 201, campaign)
}

func (h *CampaignHandler) GetCampaign(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}

	campaign, err := h.svc.Get(ctx, ownerID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, campaign)
}

func (h *CampaignHandler) ListCampaigns(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	var f model.CampaignFilter
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.CampaignStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, ownerID, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, listCampaignsResponse{Items: items, Total: total})
}

func (h *CampaignHandler) ListCampaignRecipients(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}

	rows, err := h.svc.Recipients(ctx, ownerID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, map[string]any{"items": rows})
}

func (h *CampaignHandler) GetQuotaUsage(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	usage, err := h.svc.QuotaUsage(ctx, ownerID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, usage)
}

func (h *CampaignHandler) ListTemplates(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	templates, err := h.directory.Templates(ctx, ownerID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, map[string]any{"items": templates})
}

func (h *CampaignHandler) ListContacts(ctx *xhttp.RequestCtx) {
	ownerID, ok := identity(ctx)
	if !ok {
		return
	}

	contacts, err := h.directory.Contacts(ctx, ownerID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, map[string]any{"items": contacts})
}

/* -------------------------------- Helpers ----------------------------------- */

func toSource(req recipientSourceRequest) (recipient.Source, error) {
	switch req.Type {
	case "manual":
		return recipient.ManualSource{Text: req.Text}, nil
	case "file":
		return recipient.FileSource{Data: req.FileContent}, nil
	case "contacts":
		return recipient.ContactsSource{IDs: req.ContactIDs}, nil
	case "":
		return nil, errors.New("recipient_source.type is required")
	default:
		return nil, errors.New("unknown recipient source type: " + req.Type)
	}
}

// identity reads the authenticated user from the X-User-ID header.
// Authentication itself happens upstream; an absent header is a 401.
func identity(ctx *xhttp.RequestCtx) (int64, bool) {
	raw := string(ctx.Request.Header.Peek("X-User-ID"))
	if raw == "" {
		writeError(ctx, 401, "missing X-User-ID header")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, 401, "invalid X-User-ID header")
		return 0, false
	}
	return id, true
}

func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case model.IsValidation(err):
		writeError(ctx, 400, err.Error())
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, repository.ErrCampaignNotFound),
		errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrTemplateNotFound):
		writeError(ctx, 404, "not found")
	case errors.Is(err, services.ErrForbidden):
		writeError(ctx, 403, "access denied")
	default:
		writeError(ctx, 500, "internal error")
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	raw, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(raw, 10, 64)
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
