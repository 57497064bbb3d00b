// Package handler exposes the certificate operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"petcert/internal/certificate/models"
	"petcert/internal/certificate/service"
	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/platform/httputil"
	"petcert/pkg/requestcontext"
)

// Service is the slice of the certificate service the handler calls.
type Service interface {
	Issue(ctx context.Context, req service.IssueRequest) (*models.CertificateView, error)
	FindByID(ctx context.Context, id domain.CertificateID) (*models.CertificateView, error)
	ListByPet(ctx context.Context, petID domain.PetID) ([]*models.CertificateView, error)
	QrData(ctx context.Context, id domain.CertificateID) (string, error)
	VerifyQr(ctx context.Context, data string) (*service.VerificationResult, error)
}

type Handler struct {
	certificates Service
	logger       *slog.Logger
}

func New(certificates Service, logger *slog.Logger) *Handler {
	return &Handler{certificates: certificates, logger: logger}
}

// Register mounts the certificate routes. The session middleware is applied
// by the caller; every route here assumes an authenticated context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.handleIssue)
	r.Get("/certificates/{certificateID}", h.handleGet)
	r.Get("/certificates/{certificateID}/qr", h.handleQr)
	r.Post("/certificates/verify-qr", h.handleVerifyQr)
	r.Get("/pets/{petID}/certificates", h.handleListByPet)
}

type issueRequest struct {
	CertificateNumber      string `json:"certificate_number"`
	RecordID               string `json:"record_id"`
	PractitionerPassphrase string `json:"practitioner_passphrase"`
	OrganizationPassphrase string `json:"organization_passphrase"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	recordID, err := domain.ParseRecordID(req.RecordID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "record_id must be a UUID"))
		return
	}
	if req.PractitionerPassphrase == "" || req.OrganizationPassphrase == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "both signing passphrases are required"))
		return
	}

	view, err := h.certificates.Issue(ctx, service.IssueRequest{
		CertificateNumber:      req.CertificateNumber,
		RecordID:               recordID,
		PractitionerPassphrase: []byte(req.PractitionerPassphrase),
		OrganizationPassphrase: []byte(req.OrganizationPassphrase),
	})
	if err != nil {
		h.logFailure(ctx, "issue certificate", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certificateID, err := domain.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "certificate id must be a UUID"))
		return
	}
	view, err := h.certificates.FindByID(r.Context(), certificateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListByPet(w http.ResponseWriter, r *http.Request) {
	petID, err := domain.ParsePetID(chi.URLParam(r, "petID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "pet id must be a UUID"))
		return
	}
	views, err := h.certificates.ListByPet(r.Context(), petID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certificates": views})
}

// handleQr returns the encoded bundle as text/plain, ready to be rendered as
// a QR code by the client.
func (h *Handler) handleQr(w http.ResponseWriter, r *http.Request) {
	certificateID, err := domain.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "certificate id must be a UUID"))
		return
	}
	encoded, err := h.certificates.QrData(r.Context(), certificateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(encoded))
}

type verifyQrRequest struct {
	Data string `json:"data"`
}

func (h *Handler) handleVerifyQr(w http.ResponseWriter, r *http.Request) {
	var req verifyQrRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Data == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "data is required"))
		return
	}
	result, err := h.certificates.VerifyQr(r.Context(), req.Data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error())
		return
	}
	h.logger.WarnContext(ctx, op+" rejected",
		"request_id", requestcontext.RequestID(ctx),
		"code", string(code),
		"reason", dErrors.ReasonOf(err))
}
