package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	medichat_errors "medichat/pkg/errors"

	"github.com/gin-gonic/gin"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{medichat_errors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{medichat_errors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{medichat_errors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{medichat_errors.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{medichat_errors.ErrMessageTooOld, http.StatusBadRequest, "VALIDATION_ERROR"},
		{medichat_errors.ErrSessionInactive, http.StatusBadRequest, "VALIDATION_ERROR"},
		{medichat_errors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{medichat_errors.ErrServiceUnavailable, http.StatusServiceUnavailable, "TRANSIENT_ERROR"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondError(c, tc.err)
		if w.Code != tc.wantStatus {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.wantStatus)
		}
		if !strings.Contains(w.Body.String(), tc.wantCode) {
			t.Errorf("%v: body %q missing code %s", tc.err, w.Body.String(), tc.wantCode)
		}
	}
}

func TestRespondErrorValidationCarriesMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, medichat_errors.ErrMessageTooOld)
	if !strings.Contains(w.Body.String(), "message is too old to edit") {
		t.Fatalf("validation failure should surface its specific message, got %q", w.Body.String())
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("pq: connection refused at 10.0.0.3"))
	if strings.Contains(w.Body.String(), "10.0.0.3") {
		t.Fatalf("internal error details leaked: %q", w.Body.String())
	}
}
