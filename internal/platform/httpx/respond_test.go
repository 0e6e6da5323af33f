package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized access"},
		{"forbidden", fmt.Errorf("gate: %w", ErrForbidden), http.StatusForbidden, "forbidden access"},
		{"not found", ErrNotFound, http.StatusNotFound, "resource not found"},
		{"duplicate", ErrDuplicate, http.StatusConflict, "duplicate entry"},
		{"validation", fmt.Errorf("%w: email required", ErrValidation), http.StatusBadRequest, "validation failed: email required"},
		{"internal", errors.New("connection reset by peer"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)

			assert.Equal(t, tc.status, rr.Code)
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.detail, body.Detail)
		})
	}
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var target map[string]any
	err := DecodeJSON(httptest.NewRecorder(), req, &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
