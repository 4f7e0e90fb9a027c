package pnba

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// API exposes the PNBA protocol over HTTP for host frameworks that embed the
// adapter as a service. A completed authentication mints an access token;
// the message endpoint requires one.
type API struct {
	Adapter    Protocol
	Tokens     *TokenIssuer
	Middleware Middleware
}

// NewAPI wires an API around the adapter with the given token signing key.
func NewAPI(adapter Protocol, jwtSecret string) *API {
	api := &API{
		Adapter: adapter,
		Tokens: &TokenIssuer{
			SecretKey: jwtSecret,
			Issuer:    "pnba",
		},
	}
	api.Middleware.VerifyToken = api.Tokens.ValidateAccessToken
	return api
}

// Handler returns the HTTP handler for all PNBA endpoints.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/auth/send-code", a.handleSendCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/validate-code", a.handleValidateCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/validate-password", a.handleValidatePassword).Methods(http.MethodPost)
	r.HandleFunc("/session/invalidate", a.handleInvalidate).Methods(http.MethodPost)
	r.Handle("/messages", a.Middleware.EnsureAccount(http.HandlerFunc(a.handleSendMessage))).Methods(http.MethodPost)

	return r
}

type authRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code,omitempty"`
	Password    string `json:"password,omitempty"`
}

type messageRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

func (a *API) handleSendCode(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeAuthRequest(w, r)
	if !ok {
		return
	}

	result, err := a.Adapter.SendAuthorizationCode(r.Context(), req.PhoneNumber)
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleValidateCode(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeAuthRequest(w, r)
	if !ok {
		return
	}
	if req.Code == "" {
		a.errorResponse(w, "invalid_request", "code is required", http.StatusBadRequest)
		return
	}

	result, err := a.Adapter.ValidateCodeAndFetchUserInfo(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	a.validationResponse(w, result)
}

func (a *API) handleValidatePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeAuthRequest(w, r)
	if !ok {
		return
	}
	if req.Password == "" {
		a.errorResponse(w, "invalid_request", "password is required", http.StatusBadRequest)
		return
	}

	result, err := a.Adapter.ValidatePasswordAndFetchUserInfo(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	a.validationResponse(w, result)
}

func (a *API) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeAuthRequest(w, r)
	if !ok {
		return
	}

	invalidated, err := a.Adapter.InvalidateSession(r.Context(), req.PhoneNumber)
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": invalidated})
}

func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	accountID := AccountFromContext(r.Context())

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.errorResponse(w, "invalid_request", "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Recipient == "" || req.Message == "" {
		a.errorResponse(w, "invalid_request", "recipient and message are required", http.StatusBadRequest)
		return
	}

	sent, err := a.Adapter.SendMessage(r.Context(), accountID, req.Recipient, req.Message)
	if err != nil {
		a.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": sent})
}

// validationResponse writes a validation result, attaching an access token
// when the handshake actually finished. The two-step flag is only present for
// the code step; the password-step result carries userinfo alone.
func (a *API) validationResponse(w http.ResponseWriter, result *ValidationResult) {
	resp := map[string]any{
		"userinfo": result.UserInfo,
	}
	if result.TwoStepVerificationEnabled != nil {
		resp["two_step_verification_enabled"] = *result.TwoStepVerificationEnabled
	}

	if !result.PasswordGated() && a.Tokens != nil {
		accessToken, expiresIn, err := a.Tokens.CreateAccessToken(result.UserInfo.AccountIdentifier)
		if err != nil {
			slog.Warn("error signing token", "err", err)
			a.errorResponse(w, "server_error", "failed to create token", http.StatusInternalServerError)
			return
		}
		resp["access_token"] = accessToken
		resp["token_type"] = "Bearer"
		resp["expires_in"] = expiresIn
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) decodeAuthRequest(w http.ResponseWriter, r *http.Request) (*authRequest, bool) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.errorResponse(w, "invalid_request", "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.PhoneNumber == "" {
		a.errorResponse(w, "invalid_request", "phone_number is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// upstreamError surfaces an uncaught adapter error at the presentation
// boundary: stringified, never silently dropped.
func (a *API) upstreamError(w http.ResponseWriter, err error) {
	slog.Warn("adapter operation failed", "err", err)
	a.errorResponse(w, "upstream_error", err.Error(), http.StatusBadGateway)
}

func (a *API) errorResponse(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, map[string]any{
		"error":             code,
		"error_description": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// requestLogger tags each request with an ID and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
		slog.Info("http request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}
