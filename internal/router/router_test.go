package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loanterms/internal/auth"
	"loanterms/internal/config"
	"loanterms/internal/domain"
	"loanterms/internal/handler"
	"loanterms/internal/metrics"
	"loanterms/internal/middleware"
	"loanterms/internal/router"
	"loanterms/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, secured bool) (*gin.Engine, *mocks.MockTermsService, *auth.TokenService) {
	t.Helper()
	svc := new(mocks.MockTermsService)
	tokens, err := auth.NewTokenService(config.JWTConfig{Secret: "s3cret", Issuer: "loanterms", TokenExpiry: time.Hour})
	require.NoError(t, err)

	var validator middleware.TokenValidator
	if secured {
		validator = tokens
	}
	r := router.Setup(nil, metrics.New(), validator, nil,
		handler.NewTermsHandler(svc, 1<<20), handler.NewHealthHandler(svc))
	return r, svc, tokens
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _, _ := setupRouter(t, true)

	for _, path := range []string{"/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, http.NoBody)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	r, svc, tokens := setupRouter(t, true)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/records", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc.On("ListRecords", mock.Anything, 0, 20).Return([]domain.TermRecord{}, 0, nil)
	token, _, err := tokens.Issue("tester", 0)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/records", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ExportRouteNotShadowedByID(t *testing.T) {
	r, svc, _ := setupRouter(t, false)

	svc.On("ExportRecords", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/records/export", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertNotCalled(t, "GetRecord", mock.Anything, mock.Anything)
}

func TestRouter_PreviewOpenWithoutSecret(t *testing.T) {
	r, svc, _ := setupRouter(t, false)

	svc.On("Preview", mock.Anything).Return(domain.FlattenResult{Text: "x"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/extractions/preview", strings.NewReader(`{"pages":[]}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
