package handlers

import (
	"context"
	"encoding/json"
	"testing"

	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDraftAssist struct {
	mock.Mock
}

func (m *MockDraftAssist) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDraftAssist) Draft(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestDraftHandler_CreateDraft(t *testing.T) {
	assist := new(MockDraftAssist)
	handler := NewDraftHandler(assist)

	assist.On("Draft", mock.Anything, "eid sale, friendly tone").
		Return("Eid Mubarak! Enjoy 50% off.", nil)

	bodyBytes, _ := json.Marshal(createDraftRequest{Prompt: "eid sale, friendly tone"})
	ctx := setupTestContext("POST", "/api/v1/drafts/ai", bodyBytes)
	handler.CreateDraft(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var response createDraftResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "Eid Mubarak! Enjoy 50% off.", response.Draft)
}

func TestDraftHandler_CreateDraft_PromptRequired(t *testing.T) {
	assist := new(MockDraftAssist)
	handler := NewDraftHandler(assist)

	ctx := setupTestContext("POST", "/api/v1/drafts/ai", []byte("{}"))
	handler.CreateDraft(ctx)

	assert.Equal(t, 400, ctx.Response.StatusCode())
	assist.AssertNotCalled(t, "Draft", mock.Anything, mock.Anything)
}

func TestDraftHandler_CreateDraft_NotConfigured(t *testing.T) {
	assist := new(MockDraftAssist)
	handler := NewDraftHandler(assist)

	assist.On("Draft", mock.Anything, "x").Return("", gateway.ErrAssistNotConfigured)

	bodyBytes, _ := json.Marshal(createDraftRequest{Prompt: "x"})
	ctx := setupTestContext("POST", "/api/v1/drafts/ai", bodyBytes)
	handler.CreateDraft(ctx)

	assert.Equal(t, 503, ctx.Response.StatusCode())
}

func TestDraftHandler_CreateDraft_ProviderFailure(t *testing.T) {
	assist := new(MockDraftAssist)
	handler := NewDraftHandler(assist)

	assist.On("Draft", mock.Anything, "x").
		Return("", &gateway.TransportError{StatusCode: 500, Body: "boom"})

	bodyBytes, _ := json.Marshal(createDraftRequest{Prompt: "x"})
	ctx := setupTestContext("POST", "/api/v1/drafts/ai", bodyBytes)
	handler.CreateDraft(ctx)

	assert.Equal(t, 502, ctx.Response.StatusCode())
}
