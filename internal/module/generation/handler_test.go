package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgo/server/internal/module/generation/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerHarness struct {
	*serviceHarness
	router *gin.Engine
	userID uuid.UUID
}

func newHandlerHarness(t *testing.T, mutate func(cfg *ServiceConfig)) *handlerHarness {
	t.Helper()

	h := newServiceHarness(t, mutate)
	userID := uuid.New()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_tier", "pro")
	})
	handler := NewHandler(h.svc)
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	handler.RegisterAdminRoutes(api.Group("/admin"))

	return &handlerHarness{serviceHarness: h, router: router, userID: userID}
}

func (h *handlerHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHandler_CreateGeneration(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
		TaskType: "t2i",
		Params:   map[string]any{"prompt": "a cat wearing sunglasses"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "t2i", resp.TaskType)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Equal(t, "piapi", resp.Provider)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestHandler_CreateGeneration_Async(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
		TaskType: "t2v",
		Params:   map[string]any{"prompt": "waves at sunset"},
		Async:    true,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp GenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusPending, resp.Status)
	assert.False(t, resp.Success)

	h.svc.Stop()

	stored := h.repo.get(resp.ID)
	require.NotNil(t, stored)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestHandler_CreateGeneration_MissingTaskType(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/generations", map[string]any{
		"params": map[string]any{"prompt": "a cat"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, w).Error.Code)
}

func TestHandler_CreateGeneration_UnknownTaskType(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
		TaskType: "hologram",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error.Message, "unknown task type")
}

func TestHandler_CreateGeneration_ProviderFailure(t *testing.T) {
	h := newHandlerHarness(t, nil)
	h.clients[provider.NamePiAPI].execErr = provider.NewExecutionError(provider.NamePiAPI, "NSFW content detected", nil)
	h.clients[provider.NamePollo].execErr = provider.NewExecutionError(provider.NamePollo, "generation failed", nil)

	w := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
		TaskType: "t2i",
		Params:   map[string]any{"prompt": "something"},
	})
	require.Equal(t, http.StatusBadGateway, w.Code)

	env := decodeError(t, w)
	assert.Equal(t, "UPSTREAM_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Message, "NSFW content detected")
}

func TestHandler_CreateGeneration_Unauthorized(t *testing.T) {
	h := newServiceHarness(t, nil)

	router := gin.New()
	handler := NewHandler(h.svc)
	handler.RegisterRoutes(router.Group("/api/v1"))

	raw, err := json.Marshal(CreateGenerationRequest{TaskType: "t2i"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_GetGeneration(t *testing.T) {
	h := newHandlerHarness(t, nil)

	created := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
		TaskType: "t2i",
		Params:   map[string]any{"prompt": "a cat"},
	})
	require.Equal(t, http.StatusOK, created.Code)
	var rec GenerationResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &rec))

	t.Run("found", func(t *testing.T) {
		w := h.do(t, http.MethodGet, "/api/v1/generations/"+rec.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got GenerationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, rec.ID, got.ID)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := h.do(t, http.MethodGet, "/api/v1/generations/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := h.do(t, http.MethodGet, "/api/v1/generations/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_ListGenerations(t *testing.T) {
	h := newHandlerHarness(t, nil)

	for i := 0; i < 3; i++ {
		w := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
			TaskType: "t2i",
			Params:   map[string]any{"prompt": fmt.Sprintf("prompt %d", i)},
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := h.do(t, http.MethodGet, "/api/v1/generations?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PageSize)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestHandler_Moderate(t *testing.T) {
	h := newHandlerHarness(t, nil)
	h.clients[provider.NameGemini].execResult = &provider.Result{
		Output: map[string]any{"is_safe": true, "flagged": []string{}},
	}

	w := h.do(t, http.MethodPost, "/api/v1/moderations", ModerationRequest{Prompt: "a friendly dog"})
	require.Equal(t, http.StatusOK, w.Code)

	var verdict map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.Equal(t, true, verdict["is_safe"])
}

func TestHandler_Moderate_MissingPrompt(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/moderations", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListAvatars(t *testing.T) {
	lister := &fakeAvatars{avatars: []provider.Avatar{
		{ID: "a-1", Name: "Lily", Gender: "female"},
		{ID: "a-2", Name: "Marcus", Gender: "male"},
	}}
	h := newHandlerHarness(t, func(cfg *ServiceConfig) {
		cfg.Avatars = lister
	})

	w := h.do(t, http.MethodGet, "/api/v1/avatars?asian_only=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AvatarListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.True(t, lister.asianOnly)
}

func TestHandler_ProviderHealth(t *testing.T) {
	h := newHandlerHarness(t, nil)

	created := h.do(t, http.MethodPost, "/api/v1/generations", CreateGenerationRequest{
		TaskType: "t2i",
		Params:   map[string]any{"prompt": "a cat"},
	})
	require.Equal(t, http.StatusOK, created.Code)

	w := h.do(t, http.MethodGet, "/api/v1/admin/providers/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProviderHealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	status, ok := resp.Providers["piapi"]
	require.True(t, ok)
	assert.Equal(t, "healthy", string(status.State))
}

func TestHandler_RefreshProvider(t *testing.T) {
	h := newHandlerHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/admin/providers/piapi/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "piapi", resp["provider"])
	assert.Equal(t, true, resp["healthy"])

	w = h.do(t, http.MethodPost, "/api/v1/admin/providers/nimbus/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
