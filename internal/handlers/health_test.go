package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mansoora/rehaish/internal/logger"
	"github.com/mansoora/rehaish/internal/middleware"
	"github.com/mansoora/rehaish/internal/models"
	"github.com/mansoora/rehaish/internal/repository"
	"github.com/mansoora/rehaish/internal/search"
)

// MockListingRepository is a mock implementation of repository.ListingRepository.
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Append(ctx context.Context, input repository.NewListing) (models.Listing, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(models.Listing), args.Error(1)
}

func (m *MockListingRepository) UpdateStatus(ctx context.Context, id int, status models.Status) (models.Listing, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(models.Listing), args.Error(1)
}

func (m *MockListingRepository) GetAll(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id int) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

// MockSynchronizer is a mock implementation of search.Synchronizer.
type MockSynchronizer struct {
	mock.Mock
}

func (m *MockSynchronizer) Upsert(listing models.Listing) error {
	args := m.Called(listing)
	return args.Error(0)
}

func (m *MockSynchronizer) Rebuild(listings []models.Listing) error {
	args := m.Called(listings)
	return args.Error(0)
}

func (m *MockSynchronizer) Query(text string, k int) ([]search.Match, error) {
	args := m.Called(text, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]search.Match), args.Error(1)
}

func (m *MockSynchronizer) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockSynchronizer) LastSynced(id int) (time.Time, bool) {
	args := m.Called(id)
	return args.Get(0).(time.Time), args.Bool(1)
}

func setupHealthTestRouter(handler *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("test")

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.GET("/health", handler.Health)
	router.GET("/health/ready", handler.Ready)
	router.GET("/api/v1/info", handler.Info)

	return router
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(nil, nil, "test")
	router := setupHealthTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
}

func TestHealthHandler_Ready_StoreAndIndexInSync(t *testing.T) {
	mockRepo := new(MockListingRepository)
	mockIndex := new(MockSynchronizer)
	handler := NewHealthHandler(mockRepo, mockIndex, "test")
	router := setupHealthTestRouter(handler)

	mockRepo.On("GetAll", mock.Anything).Return([]models.Listing{{ID: 1}, {ID: 2}}, nil)
	mockIndex.On("Len").Return(2)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
	assert.Equal(t, 2, response.Listings)
	assert.Equal(t, 2, response.Indexed)
}

func TestHealthHandler_Ready_IndexDiverged(t *testing.T) {
	mockRepo := new(MockListingRepository)
	mockIndex := new(MockSynchronizer)
	handler := NewHealthHandler(mockRepo, mockIndex, "test")
	router := setupHealthTestRouter(handler)

	mockRepo.On("GetAll", mock.Anything).Return([]models.Listing{{ID: 1}, {ID: 2}, {ID: 3}}, nil)
	mockIndex.On("Len").Return(2)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not_ready", response.Status)
	assert.Equal(t, 3, response.Listings)
	assert.Equal(t, 2, response.Indexed)
}

func TestHealthHandler_Ready_StoreUnreadable(t *testing.T) {
	mockRepo := new(MockListingRepository)
	mockIndex := new(MockSynchronizer)
	handler := NewHealthHandler(mockRepo, mockIndex, "test")
	router := setupHealthTestRouter(handler)

	mockRepo.On("GetAll", mock.Anything).Return(nil, errors.New("malformed row"))
	mockIndex.On("Len").Return(0)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unreadable")
}

func TestHealthHandler_Info(t *testing.T) {
	handler := NewHealthHandler(nil, nil, "production")
	handler.startTime = time.Now().Add(-2 * time.Hour)
	router := setupHealthTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response InfoResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, APIVersion, response.Version)
	assert.Equal(t, "production", response.Environment)
	assert.NotEmpty(t, response.Uptime)
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"seconds only", 45 * time.Second, "0h 0m 45s"},
		{"minutes and seconds", 5*time.Minute + 30*time.Second, "0h 5m 30s"},
		{"hours", 2*time.Hour + 15*time.Minute + 45*time.Second, "2h 15m 45s"},
		{"days", 3*24*time.Hour + 5*time.Hour + 30*time.Minute + 15*time.Second, "3d 5h 30m 15s"},
		{"zero", 0, "0h 0m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatUptime(tt.duration))
		})
	}
}
