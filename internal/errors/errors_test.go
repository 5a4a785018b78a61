package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_WrappedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad"), KindValidation},
		{"wrapped conflict", fmt.Errorf("claim: %w", Conflict("taken")), KindConflict},
		{"forbidden", Forbidden("no"), KindAuthorization},
		{"not found", NotFound("gone"), KindNotFound},
		{"plain error", stderrors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAPIError_IsMatchesKindAndCode(t *testing.T) {
	base := Conflict("task already claimed")
	withDetails := base.WithDetails(map[string]string{"holder": "alice"})

	assert.True(t, stderrors.Is(fmt.Errorf("wrap: %w", withDetails), base))
	assert.False(t, stderrors.Is(withDetails, Validation("task already claimed")))
	assert.Nil(t, base.Details)
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", Validation("missing headline"), http.StatusBadRequest, ErrCodeInvalidInput},
		{"conflict", fmt.Errorf("x: %w", Conflict("taken")), http.StatusConflict, ErrCodeConflict},
		{"lock held", Coded(KindConflict, ErrCodeLockHeld, "locked"), http.StatusConflict, ErrCodeLockHeld},
		{"forbidden", Forbidden("managers only"), http.StatusForbidden, ErrCodeForbidden},
		{"not found", NotFound("task not found"), http.StatusNotFound, ErrCodeNotFound},
		{"internal", stderrors.New("db down"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Respond(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestRespond_InternalHidesMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Respond(c, stderrors.New("connection refused to 10.0.0.3"))

	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestResponseHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		respond     func(c *gin.Context)
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"unauthorized default", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"},
		{"unauthorized custom", func(c *gin.Context) { Unauthorized(c, "Not authenticated") }, http.StatusUnauthorized, ErrCodeUnauthorized, "Not authenticated"},
		{"internal", func(c *gin.Context) { InternalError(c, "Failed to logout") }, http.StatusInternalServerError, ErrCodeInternalError, "Failed to logout"},
		{"rate limited", func(c *gin.Context) { TooManyRequests(c, "") }, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Rate limit exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			tt.respond(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}

	// predefined errors stay untouched by custom messages
	assert.Equal(t, "Authentication required", ErrUnauthorized.Message)
}
