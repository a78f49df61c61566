package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrust/pharmacy-api/internal/handler"
	apperrors "github.com/pharmatrust/pharmacy-api/pkg/errors"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperrors.NotFound("drug", nil), http.StatusNotFound},
		{"validation", apperrors.Validation("bad input", nil), http.StatusBadRequest},
		{"invalid operation", apperrors.InvalidOperation("zero delta"), http.StatusBadRequest},
		{"unauthorized", apperrors.Unauthorized("no role"), http.StatusForbidden},
		{"invalid transition", apperrors.InvalidTransition("dispensed", "verified"), http.StatusConflict},
		{"insufficient stock", apperrors.InsufficientStock(10, 30), http.StatusConflict},
		{"expired drug", apperrors.ExpiredDrug("Amoxicillin"), http.StatusConflict},
		{"cannot expire dispensed", apperrors.CannotExpireDispensed(), http.StatusConflict},
		{"integrity violation", apperrors.IntegrityViolation(3), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			handler.WriteError(c, tc.err)
			assert.Equal(t, tc.status, rec.Code)

			var resp handler.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestNewSuccessResponse(t *testing.T) {
	resp := handler.NewSuccessResponse(map[string]int{"stock": 15})
	assert.Equal(t, "success", resp.Status)
	assert.Empty(t, resp.Message)
	assert.NotNil(t, resp.Data)
}
