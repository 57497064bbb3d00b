package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcert/internal/certificate/handler"
	"petcert/internal/certificate/models"
	"petcert/internal/certificate/service"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
)

type fakeService struct {
	issueView  *models.CertificateView
	issueErr   error
	findView   *models.CertificateView
	findErr    error
	listViews  []*models.CertificateView
	listErr    error
	qrData     string
	qrErr      error
	verifyRes  *service.VerificationResult
	verifyErr  error
	lastIssue  service.IssueRequest
	lastVerify string
}

func (f *fakeService) Issue(_ context.Context, req service.IssueRequest) (*models.CertificateView, error) {
	f.lastIssue = req
	return f.issueView, f.issueErr
}

func (f *fakeService) FindByID(context.Context, domain.CertificateID) (*models.CertificateView, error) {
	return f.findView, f.findErr
}

func (f *fakeService) ListByPet(context.Context, domain.PetID) ([]*models.CertificateView, error) {
	return f.listViews, f.listErr
}

func (f *fakeService) QrData(context.Context, domain.CertificateID) (string, error) {
	return f.qrData, f.qrErr
}

func (f *fakeService) VerifyQr(_ context.Context, data string) (*service.VerificationResult, error) {
	f.lastVerify = data
	return f.verifyRes, f.verifyErr
}

func newRouter(svc *fakeService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	handler.New(svc, logger).Register(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIssue_Created(t *testing.T) {
	svc := &fakeService{issueView: &models.CertificateView{ID: uuid.NewString(), Number: "UK-GB-000123"}}
	router := newRouter(svc)

	recordID := uuid.NewString()
	rec := postJSON(t, router, "/certificates", map[string]string{
		"certificate_number":      "UK-GB-000123",
		"record_id":               recordID,
		"practitioner_passphrase": "vet-pass",
		"organization_passphrase": "org-pass",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "UK-GB-000123", svc.lastIssue.CertificateNumber)
	assert.Equal(t, recordID, svc.lastIssue.RecordID.String())
	assert.Equal(t, []byte("vet-pass"), svc.lastIssue.PractitionerPassphrase)

	var body models.CertificateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UK-GB-000123", body.Number)
}

func TestIssue_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"record id not a uuid", map[string]string{
			"certificate_number":      "UK-GB-000123",
			"record_id":               "not-a-uuid",
			"practitioner_passphrase": "a",
			"organization_passphrase": "b",
		}},
		{"missing practitioner passphrase", map[string]string{
			"certificate_number":      "UK-GB-000123",
			"record_id":               uuid.NewString(),
			"organization_passphrase": "b",
		}},
		{"missing organization passphrase", map[string]string{
			"certificate_number":      "UK-GB-000123",
			"record_id":               uuid.NewString(),
			"practitioner_passphrase": "a",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, newRouter(&fakeService{}), "/certificates", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIssue_ConflictCarriesReason(t *testing.T) {
	svc := &fakeService{issueErr: dErrors.NewWithReason(dErrors.CodeConflict,
		service.ReasonRecordAlreadyCertified, "record already has a certificate")}
	rec := postJSON(t, newRouter(svc), "/certificates", map[string]string{
		"certificate_number":      "UK-GB-000123",
		"record_id":               uuid.NewString(),
		"practitioner_passphrase": "a",
		"organization_passphrase": "b",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "conflict", body["error"])
	assert.Equal(t, service.ReasonRecordAlreadyCertified, body["reason"])
}

func TestIssue_InternalErrorIsMasked(t *testing.T) {
	svc := &fakeService{issueErr: dErrors.New(dErrors.CodeInternal, "db connection refused at 10.0.0.5")}
	rec := postJSON(t, newRouter(svc), "/certificates", map[string]string{
		"certificate_number":      "UK-GB-000123",
		"record_id":               uuid.NewString(),
		"practitioner_passphrase": "a",
		"organization_passphrase": "b",
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestGet_StatusMapping(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := &fakeService{findView: &models.CertificateView{ID: uuid.NewString()}}
		rec := get(newRouter(svc), "/certificates/"+uuid.NewString())
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("not found", func(t *testing.T) {
		svc := &fakeService{findErr: dErrors.New(dErrors.CodeNotFound, "certificate not found")}
		rec := get(newRouter(svc), "/certificates/"+uuid.NewString())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("forbidden", func(t *testing.T) {
		svc := &fakeService{findErr: dErrors.New(dErrors.CodeForbidden, "not authorized for this pet")}
		rec := get(newRouter(svc), "/certificates/"+uuid.NewString())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("bad id", func(t *testing.T) {
		rec := get(newRouter(&fakeService{}), "/certificates/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListByPet(t *testing.T) {
	svc := &fakeService{listViews: []*models.CertificateView{{ID: uuid.NewString()}}}
	rec := get(newRouter(svc), "/pets/"+uuid.NewString()+"/certificates")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Certificates []models.CertificateView `json:"certificates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Certificates, 1)
}

func TestQr_PlainText(t *testing.T) {
	svc := &fakeService{qrData: "PC1:ABC123"}
	rec := get(newRouter(svc), "/certificates/"+uuid.NewString()+"/qr")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PC1:ABC123", rec.Body.String())
}

func TestVerifyQr(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := &fakeService{verifyRes: &service.VerificationResult{Valid: true, DigestValid: true}}
		rec := postJSON(t, newRouter(svc), "/certificates/verify-qr", map[string]string{"data": "PC1:ABC"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "PC1:ABC", svc.lastVerify)
	})
	t.Run("decode failure is 400", func(t *testing.T) {
		svc := &fakeService{verifyErr: dErrors.New(dErrors.CodeQrDecode, "missing or unsupported qr prefix")}
		rec := postJSON(t, newRouter(svc), "/certificates/verify-qr", map[string]string{"data": "XX9:zzz"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("empty data", func(t *testing.T) {
		rec := postJSON(t, newRouter(&fakeService{}), "/certificates/verify-qr", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
