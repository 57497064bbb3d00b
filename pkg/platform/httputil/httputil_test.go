package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/platform/httputil"
)

func TestWriteError_ClientErrorsCarryDescription(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, dErrors.NewWithReason(dErrors.CodePreconditionFailed,
		"record_not_signed", "record has not been signed by a practitioner"))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "precondition_failed", body["error"])
	assert.Equal(t, "record_not_signed", body["reason"])
	assert.Contains(t, body["error_description"], "not been signed")
}

func TestWriteError_InternalErrorsAreMasked(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, dErrors.New(dErrors.CodeInternal, "pgx: connection refused 10.0.0.5:5432"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["error"])
	assert.Empty(t, body["error_description"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestWriteError_NonDomainErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteError(rec, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := httputil.DecodeJSON(req, &dst)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.WriteJSON(rec, http.StatusCreated, map[string]string{"id": "x"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"x"}`, rec.Body.String())
}
