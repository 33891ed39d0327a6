package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const oauthStateCookie = "salonbook_oauth_state"

// TokenExchanger is satisfied by *oauth2.Config.
type TokenExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// OAuthHandler bootstraps the Google Calendar refresh token. The operator
// opens /oauth2/authorize once, grants access and copies the refresh token
// from the server log into GOOGLE_REFRESH_TOKEN.
type OAuthHandler struct {
	oauth TokenExchanger
}

func NewOAuthHandler(oauth TokenExchanger) *OAuthHandler {
	return &OAuthHandler{oauth: oauth}
}

// OAuthRouter registers the consent routes at the router root.
func OAuthRouter(r chi.Router, oauth TokenExchanger) {
	handler := NewOAuthHandler(oauth)

	r.Get("/oauth2/authorize", handler.Authorize)
	r.Get("/oauth2callback", handler.Callback)
}

// Authorize redirects to the Google consent screen asking for offline access.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	url := h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback exchanges the authorization code and logs the refresh token.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("oauth: exchange failed: %v", err)
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	if token.RefreshToken == "" {
		log.Printf("oauth: google returned no refresh token; revoke the app's access and retry")
	} else {
		log.Printf("oauth: GOOGLE_REFRESH_TOKEN=%s", token.RefreshToken)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Authorization complete. Copy the refresh token from the server log into GOOGLE_REFRESH_TOKEN.\n"))
}
