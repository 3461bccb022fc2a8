package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSuccess_WrapsDataWithRequestID(t *testing.T) {
	c, w := testContext(t)
	c.Set("request_id", "req-123")

	Success(c, http.StatusOK, map[string]string{"status": "active"})

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, "req-123", env.RequestID)
	assert.False(t, env.Timestamp.IsZero())
}

func TestError_AppErrorKeepsCodeAndStatus(t *testing.T) {
	c, w := testContext(t)

	Error(c, apperror.ErrInsufficientFunds("KES"))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeInsufficientFunds, env.Error.Code)
}

func TestError_UnknownErrorBecomesOpaqueInternal(t *testing.T) {
	c, w := testContext(t)

	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeInternal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "connection refused")
}

func TestValidationError(t *testing.T) {
	c, w := testContext(t)

	ValidationError(c, "amount must be positive")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeValidation, env.Error.Code)
	assert.Equal(t, "amount must be positive", env.Error.Message)
}
