package tempaccess

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/platform/httputil"
)

// Handler exposes token issuance (session-authenticated) and the shared
// record read path (temp-token-authenticated).
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterIssue mounts the issuance route; the caller wraps it with the
// session auth middleware.
func (h *Handler) RegisterIssue(r chi.Router) {
	r.Post("/pets/{petID}/access-tokens", h.handleIssueToken)
}

// RegisterShared mounts the shared read path. No session middleware: the
// temporary token in the Authorization header is the only credential.
func (h *Handler) RegisterShared(r chi.Router) {
	r.Get("/shared/records", h.handleListRecords)
}

type issueTokenRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

type issueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	petID, err := domain.ParsePetID(chi.URLParam(r, "petID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "pet id must be a UUID"))
		return
	}
	var req issueTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, expiresAt, err := h.service.IssueToken(r.Context(), petID,
		time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, issueTokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	token, ok := sharedBearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "missing bearer token"))
		return
	}
	records, err := h.service.ListRecords(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

func sharedBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
