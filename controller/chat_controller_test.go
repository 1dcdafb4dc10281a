package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/models"
	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	answer string
}

func (s *stubGenerator) GenerateText(context.Context, string, string, services.GenerationOptions) (string, error) {
	return s.answer, nil
}

type emptyRetriever struct{}

func (emptyRetriever) Retrieve(context.Context, string, string, int) ([]models.DocumentFragment, error) {
	return nil, nil
}

func newTestRouter(answer string) (*gin.Engine, *services.SessionStore) {
	gin.SetMode(gin.TestMode)

	store := services.NewSessionStore(services.DefaultModel)
	gemini := services.NewGeminiService(&stubGenerator{answer: answer})
	chat := services.NewChatService(store, emptyRetriever{}, gemini)
	faq := services.NewFAQService(chat)
	ctrl := NewChatController(chat, nil, faq, store)

	router := gin.New()
	router.POST("/api/v1/query", ctrl.Query)
	router.GET("/api/v1/history", ctrl.GetHistory)
	router.GET("/api/v1/faqs", ctrl.ListFAQs)
	router.POST("/api/v1/faqs/answer", ctrl.AnswerFAQ)
	return router, store
}

func TestQueryEndpoint(t *testing.T) {
	router, _ := newTestRouter("Article 21 guarantees right to life.")

	body, _ := json.Marshal(models.QueryRequest{Question: "What is Article 21?"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "**Article** 21 guarantees right to life.", resp.Answer)
	assert.NotEmpty(t, resp.SessionID)
}

func TestQueryEndpointRejectsMissingQuestion(t *testing.T) {
	router, _ := newTestRouter("unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	router, store := newTestRouter("answer")
	state := store.Get("s1")
	state.AppendTurn(models.RoleUser, "hello")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?sessionID=s1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, "hello", resp.Turns[0].Content)
}

func TestHistoryEndpointRequiresSessionID(t *testing.T) {
	router, _ := newTestRouter("answer")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFAQEndpoints(t *testing.T) {
	router, _ := newTestRouter("Visit your nearest legal services authority.")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/faqs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list models.FAQListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.NotEmpty(t, list.FAQs)

	body, _ := json.Marshal(models.FAQAnswerRequest{Index: len(list.FAQs) - 1})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/faqs/answer", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	body, _ = json.Marshal(models.FAQAnswerRequest{Index: 99})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/faqs/answer", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
