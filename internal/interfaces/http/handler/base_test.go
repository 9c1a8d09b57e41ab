package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Success(c, map[string]string{"k": "v"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerSuccessList(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.SuccessList(c, []int{1, 2}, 50, 10, 2)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 50, resp.Meta.Limit)
	assert.Equal(t, 10, resp.Meta.Offset)
	assert.Equal(t, 2, resp.Meta.Count)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewDomainError(shared.CodeNotFound, "Product not found"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid input", shared.NewDomainError(shared.CodeInvalidInput, "bad"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"invariant", shared.NewDomainError(shared.CodeInvariantViolation, "negative"), http.StatusUnprocessableEntity, dto.ErrCodeInvariantViolation},
		{"forbidden", shared.NewDomainError(shared.CodeForbidden, "revoked"), http.StatusForbidden, dto.ErrCodeForbidden},
		{"unauthorized", shared.NewDomainError(shared.CodeUnauthorized, "no actor"), http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"transaction failure", shared.NewTransactionFailure("receive", errors.New("conn reset")), http.StatusInternalServerError, dto.ErrCodeTransactionFailure},
		{"wrapped domain error", fmt.Errorf("outer: %w", shared.NewDomainError(shared.CodeNotFound, "gone")), http.StatusNotFound, dto.ErrCodeNotFound},
		{"plain error", errors.New("driver exploded"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "driver exploded")
		})
	}
}

func TestBaseHandlerHandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.HandleError(c, nil)
	assert.False(t, c.Writer.Written())
}
