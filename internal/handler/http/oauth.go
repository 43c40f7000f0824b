package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubcommerce/auth-service/internal/service"
	"github.com/clubcommerce/auth-service/internal/session"
	apperrors "github.com/clubcommerce/auth-service/pkg/errors"
)

// OAuthHandler handles the OAuth begin/callback endpoints. Unlike the JSON
// endpoints, callback failures redirect back to the front end with error
// query parameters since the browser is mid-navigation.
type OAuthHandler struct {
	service  *service.OAuthService
	cookies  *session.CookieManager
	redirect *session.RedirectBuilder
	logger   *slog.Logger
}

// NewOAuthHandler creates a new OAuth HTTP handler.
func NewOAuthHandler(svc *service.OAuthService, cookies *session.CookieManager, redirect *session.RedirectBuilder, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{service: svc, cookies: cookies, redirect: redirect, logger: logger}
}

// Begin handles GET /api/v1/auth/oauth/{provider}. An optional redirect_url
// query parameter is folded into the signed state and replayed on the
// front-end callback once the flow completes.
func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	authURL, err := h.service.BeginFlow(r.Context(), provider, r.URL.Query().Get("redirect_url"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, response{
				Error: &errorResponse{Code: "NOT_FOUND", Message: "unknown oauth provider"},
			})
			return
		}
		writeAppError(w, r, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /api/v1/auth/oauth/{provider}/callback
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	// Provider-side denial (user cancelled consent, etc). The state still
	// comes back on this path, so the redirect target survives the error.
	if errCode := q.Get("error"); errCode != "" {
		h.logger.WarnContext(r.Context(), "oauth callback returned provider error",
			slog.String("provider", provider),
			slog.String("error", errCode),
		)
		target := h.service.RedirectTarget(q.Get("state"))
		http.Redirect(w, r, h.redirect.Failure(provider, errCode, q.Get("error_description"), target), http.StatusFound)
		return
	}

	user, tokens, redirectURL, err := h.service.HandleCallback(r.Context(), provider, q.Get("code"), q.Get("state"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "oauth callback failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, h.redirect.Failure(provider, "oauth_failed", safeErrorMessage(err), redirectURL), http.StatusFound)
		return
	}

	h.logger.InfoContext(r.Context(), "oauth callback succeeded",
		slog.String("provider", provider),
		slog.String("user_id", user.ID.String()),
	)

	h.cookies.Attach(w, tokens)
	http.Redirect(w, r, h.redirect.Success(provider, redirectURL), http.StatusFound)
}

// safeErrorMessage extracts a client-safe description from an error. Only
// AppError messages are exposed; anything else becomes a generic phrase.
func safeErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "authentication failed"
}
