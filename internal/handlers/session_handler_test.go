package handlers

import (
	"context"
	"encoding/json"
	"testing"

	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSessionGateway struct {
	mock.Mock
}

func (m *MockSessionGateway) StartSession(ctx context.Context, userID int64) (json.RawMessage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockSessionGateway) SessionStatus(ctx context.Context, userID int64) (json.RawMessage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockSessionGateway) Disconnect(ctx context.Context, userID int64) (json.RawMessage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func TestSessionHandler_StartSession_ProxiesBridgeReply(t *testing.T) {
	gw := new(MockSessionGateway)
	handler := NewSessionHandler(gw)

	reply := json.RawMessage(`{"status":"qr","qr":"data:image/png;base64,AAAA"}`)
	gw.On("StartSession", mock.Anything, int64(7)).Return(reply, nil)

	ctx := setupTestContext("POST", "/api/v1/session/start", nil)
	handler.StartSession(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.JSONEq(t, string(reply), string(ctx.Response.Body()))
}

func TestSessionHandler_Status_UnreachableBridgeIs503(t *testing.T) {
	gw := new(MockSessionGateway)
	handler := NewSessionHandler(gw)

	gw.On("SessionStatus", mock.Anything, int64(7)).Return(nil, gateway.ErrGatewayUnavailable)

	ctx := setupTestContext("GET", "/api/v1/session/status", nil)
	handler.SessionStatus(ctx)

	assert.Equal(t, 503, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "unavailable")
}

func TestSessionHandler_Disconnect_BridgeErrorKeepsStatus(t *testing.T) {
	gw := new(MockSessionGateway)
	handler := NewSessionHandler(gw)

	gw.On("Disconnect", mock.Anything, int64(7)).
		Return(nil, &gateway.TransportError{StatusCode: 409, Body: `{"error":"no active session"}`})

	ctx := setupTestContext("POST", "/api/v1/session/disconnect", nil)
	handler.Disconnect(ctx)

	assert.Equal(t, 409, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "no active session")
}

func TestSessionHandler_RequiresIdentity(t *testing.T) {
	gw := new(MockSessionGateway)
	handler := NewSessionHandler(gw)

	ctx := setupTestContext("POST", "/api/v1/session/start", nil)
	ctx.Request.Header.Del("X-User-ID")
	handler.StartSession(ctx)

	assert.Equal(t, 401, ctx.Response.StatusCode())
	gw.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything)
}
