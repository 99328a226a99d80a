package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mansoora/rehaish/internal/agent"
	"github.com/mansoora/rehaish/internal/logger"
	"github.com/mansoora/rehaish/internal/middleware"
)

// MockPipeline is a mock implementation of agent.Pipeline.
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Run(ctx context.Context, st *agent.State) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func setupAskTestRouter(handler *AskHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("test")

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.POST("/ask", handler.Ask)

	return router
}

func TestAskHandler_Ask_Success(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := NewAskHandler(mockPipeline)
	router := setupAskTestRouter(handler)

	mockPipeline.On("Run", mock.Anything, mock.AnythingOfType("*agent.State")).
		Run(func(args mock.Arguments) {
			st := args.Get(1).(*agent.State)
			st.Response = "I found 1 matching property."
			st.Matches = []int{4}
		}).
		Return(nil)

	req := jsonRequest(t, http.MethodPost, "/ask", map[string]string{
		"query": "house in Lahore with 3 bedrooms",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response AskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "I found 1 matching property.", response.Response)
	assert.Equal(t, []int{4}, response.MatchedIDs)
	mockPipeline.AssertExpectations(t)
}

func TestAskHandler_Ask_TrimsQuery(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := NewAskHandler(mockPipeline)
	router := setupAskTestRouter(handler)

	mockPipeline.On("Run", mock.Anything, mock.MatchedBy(func(st *agent.State) bool {
		return st.Query == "house in Karachi"
	})).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/ask", map[string]string{
		"query": "  house in Karachi  ",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockPipeline.AssertExpectations(t)
}

func TestAskHandler_Ask_EmptyQuery(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing query field", map[string]string{}},
		{"whitespace only query", map[string]string{"query": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPipeline := new(MockPipeline)
			handler := NewAskHandler(mockPipeline)
			router := setupAskTestRouter(handler)

			req := jsonRequest(t, http.MethodPost, "/ask", tt.body)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockPipeline.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestAskHandler_Ask_PipelineFailure(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := NewAskHandler(mockPipeline)
	router := setupAskTestRouter(handler)

	mockPipeline.On("Run", mock.Anything, mock.Anything).
		Return(errors.New("retrieval failed"))

	req := jsonRequest(t, http.MethodPost, "/ask", map[string]string{
		"query": "house in Lahore",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestAskHandler_Ask_NoMatchesReturnsEmptyList(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := NewAskHandler(mockPipeline)
	router := setupAskTestRouter(handler)

	mockPipeline.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			st := args.Get(1).(*agent.State)
			st.Response = "Sorry, I couldn't find any listings matching your request. Try broadening your search."
		}).
		Return(nil)

	req := jsonRequest(t, http.MethodPost, "/ask", map[string]string{
		"query": "castle on the moon",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matched_ids":[]`)
}
