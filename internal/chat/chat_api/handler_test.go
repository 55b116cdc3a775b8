package chat_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-bot/internal/chat"
	"storefront-bot/internal/models"
	"storefront-bot/internal/order"
)

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) EnsureUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockProfiles) GetUserProfile(ctx context.Context, userID int64) (models.UserProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.UserProfile), args.Error(1)
}

func (m *MockProfiles) SetUserCity(ctx context.Context, userID int64, city string) error {
	return m.Called(ctx, userID, city).Error(0)
}

// MockOrders implements chat.Orders; only the methods a test sets up are called.
type MockOrders struct {
	mock.Mock
	chat.Orders
}

func (m *MockOrders) GetOrderStatus(ctx context.Context, orderID, userID int64) (order.OrderSnapshot, error) {
	args := m.Called(ctx, orderID, userID)
	return args.Get(0).(order.OrderSnapshot), args.Error(1)
}

func (m *MockOrders) ExtendReservation(ctx context.Context, orderID, userID int64) (time.Time, error) {
	args := m.Called(ctx, orderID, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

type decoded struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Data    chat.Reply `json:"data"`
}

func setup(t *testing.T) (http.Handler, *MockOrders, *MockPinger) {
	profiles := &MockProfiles{}
	profiles.On("EnsureUser", mock.Anything, mock.Anything).Return(nil)
	orders := &MockOrders{}
	pinger := &MockPinger{}

	bot := chat.NewBot(profiles, nil, orders, nil, 0, nil)
	return NewHandler(bot, pinger, nil).Routes(), orders, pinger
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, decoded) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestCallbackRendersOrder(t *testing.T) {
	h, orders, _ := setup(t)
	orders.On("GetOrderStatus", mock.Anything, int64(4), int64(1)).Return(order.OrderSnapshot{
		OrderID: 4, Status: models.StatusAwaitingPayment, ExtensionsLimit: 1, RemainingMinutes: 30,
	}, nil)

	rec, body := do(t, h, http.MethodPost, "/api/chat/callback", `{"user_id": 1, "data": "status:4"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Contains(t, body.Data.Text, "Order #4")
	assert.NotEmpty(t, body.Data.Keyboard)
	orders.AssertExpectations(t)
}

func TestCallbackMapsDomainErrors(t *testing.T) {
	h, orders, _ := setup(t)
	orders.On("ExtendReservation", mock.Anything, int64(4), int64(1)).Return(time.Time{}, order.ErrLimitExhausted)

	rec, body := do(t, h, http.MethodPost, "/api/chat/callback", `{"user_id": 1, "data": "extend:4"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "The reservation cannot be extended any more.", body.Error)
	assert.Equal(t, body.Error, body.Data.Text)
}

func TestCallbackRejectsMalformedToken(t *testing.T) {
	h, _, _ := setup(t)

	rec, body := do(t, h, http.MethodPost, "/api/chat/callback", `{"user_id": 1, "data": "extend:abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "malformed request")
}

func TestMessageRejectsBadBody(t *testing.T) {
	h, _, _ := setup(t)

	rec, body := do(t, h, http.MethodPost, "/api/chat/message", `{"text": "/start"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
}

func TestMessageStart(t *testing.T) {
	h, _, _ := setup(t)

	rec, body := do(t, h, http.MethodPost, "/api/chat/message", `{"user_id": 5, "text": "/start"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body.Data.Text, "shop bot")
}

func TestHealth(t *testing.T) {
	h, _, pinger := setup(t)
	pinger.On("PingContext", mock.Anything).Return(nil).Once()
	pinger.On("PingContext", mock.Anything).Return(errors.New("connection refused")).Once()

	rec, body := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	rec, body = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database unreachable", body.Error)
}
