package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/pkg/auth"
	"parkly/pkg/kafka"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

type mockService struct {
	getAllFunc func(ctx context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, int64, error)
}

func (m *mockService) GetAll(ctx context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, int64, error) {
	return m.getAllFunc(ctx, search, limit, offset)
}

func (m *mockService) HandleMessage(context.Context, kafka.Message) error {
	return nil
}

func serve(svc *mockService, path string, id auth.Identity) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewAuditLogHandler(svc, logger.Nop()).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetAll_AdminOnly(t *testing.T) {
	called := false
	svc := &mockService{getAllFunc: func(context.Context, string, int, int64) ([]*model.AuditEntry, int64, error) {
		called = true
		return nil, 0, nil
	}}

	rec := serve(svc, "/api/v1/logs", auth.Identity{UserID: 3, Role: auth.RoleUser})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestGetAll_PassesQuery(t *testing.T) {
	var (
		gotSearch string
		gotLimit  int
		gotOffset int64
	)
	svc := &mockService{getAllFunc: func(_ context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, int64, error) {
		gotSearch, gotLimit, gotOffset = search, limit, offset
		return []*model.AuditEntry{{ID: "e1", ActorID: 1, Action: "Slot A1 deleted"}}, 7, nil
	}}

	rec := serve(svc, "/api/v1/logs?search=slot&limit=5&offset=2", auth.Identity{UserID: 1, Role: auth.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "slot", gotSearch)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, int64(2), gotOffset)

	var body struct {
		Data       []model.AuditEntry `json:"data"`
		TotalCount int64              `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.TotalCount)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Slot A1 deleted", body.Data[0].Action)
}

func TestGetAll_BadPagination(t *testing.T) {
	svc := &mockService{getAllFunc: func(context.Context, string, int, int64) ([]*model.AuditEntry, int64, error) {
		t.Fatal("service must not be called")
		return nil, 0, nil
	}}

	rec := serve(svc, "/api/v1/logs?limit=abc", auth.Identity{UserID: 1, Role: auth.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
