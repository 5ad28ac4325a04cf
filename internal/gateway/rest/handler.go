// Package rest serves the platform's JSON API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alakara/harvest/internal/chat"
	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/dashboard"
	gwconfig "github.com/alakara/harvest/internal/gateway/config"
	"github.com/alakara/harvest/internal/identity"
	"github.com/alakara/harvest/internal/integrations/geocode"
	"github.com/alakara/harvest/internal/integrations/httpclient"
	"github.com/alakara/harvest/internal/profile"
	"github.com/alakara/harvest/internal/server"
	"github.com/alakara/harvest/internal/transport"
	"github.com/alakara/harvest/internal/users"
)

type ProfileService interface {
	Get(ctx context.Context, owner string) (*profile.Profile, error)
	Update(ctx context.Context, owner string, req profile.UpdateRequest) (*profile.Profile, error)
}

type TransportService interface {
	Create(ctx context.Context, owner string, req transport.CreateRequest) (*transport.Listing, error)
	ListAvailable(ctx context.Context, page storage.PageRequest) (*storage.PageResult[transport.Listing], error)
	ListMine(ctx context.Context, owner string, page storage.PageRequest) (*storage.PageResult[transport.Listing], error)
	Delete(ctx context.Context, id, owner string) (*transport.Listing, error)
}

type UserService interface {
	Register(ctx context.Context, req users.RegisterRequest) (*users.AuthResult, error)
	Login(ctx context.Context, req users.LoginRequest) (*users.AuthResult, error)
	Get(ctx context.Context, id string) (*users.User, error)
	UpdateProfile(ctx context.Context, id string, req users.UpdateRequest) (*users.User, error)
	List(ctx context.Context, page storage.PageRequest) (*storage.PageResult[users.User], error)
	VerifyEmail(ctx context.Context, token string) (*users.User, error)
	ResendVerification(ctx context.Context, email string) error
}

type DashboardService interface {
	Get(ctx context.Context) (*dashboard.Dashboard, error)
}

type ChatService interface {
	History(ctx context.Context, owner string) (*chat.Session, error)
	Post(ctx context.Context, owner, text string) (*chat.Message, error)
}

type Geocoder interface {
	Lookup(ctx context.Context, address string) (map[string]interface{}, error)
}

// Deps are the services behind the routes. Routes of a nil service are not
// registered. Sessions and Accounts are required.
type Deps struct {
	Profiles  ProfileService
	Transport TransportService
	Users     UserService
	Dashboard DashboardService
	Chat      ChatService
	Geocoder  Geocoder

	// Sessions verifies Clerk session tokens.
	Sessions identity.Authenticator
	// Accounts verifies tokens issued by the legacy account API.
	Accounts identity.Authenticator
	Admin    *identity.Policy

	// AuthRateLimit wraps the credential endpoints. Nil disables it.
	AuthRateLimit func(http.Handler) http.Handler
}

type Handler struct {
	deps         Deps
	cfg          gwconfig.GatewayConfig
	defaultLimit int
}

var errMissingAuthenticator = errors.New("rest: session and account authenticators are required")

// NewHandler builds the handler. defaultLimit is the page size used when a
// listing request omits limit.
func NewHandler(deps Deps, cfg gwconfig.GatewayConfig, defaultLimit int) (*Handler, error) {
	if deps.Sessions == nil || deps.Accounts == nil {
		return nil, errMissingAuthenticator
	}
	if deps.Admin == nil {
		p, err := identity.NewPolicy(identity.DefaultAdminRule)
		if err != nil {
			return nil, err
		}
		deps.Admin = p
	}
	if deps.AuthRateLimit == nil {
		deps.AuthRateLimit = func(next http.Handler) http.Handler { return next }
	}
	cfg.ApplyDefaults()
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	return &Handler{deps: deps, cfg: cfg, defaultLimit: defaultLimit}, nil
}

// Error codes
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeNotImplemented   = "NOT_IMPLEMENTED"
	ErrCodeBadGateway       = "BAD_GATEWAY"
)

func writeError(w http.ResponseWriter, status int, code string, message string) {
	server.WriteError(w, status, code, message)
}

// writeInternalError writes 499 instead of 500 when the client went away.
func writeInternalError(w http.ResponseWriter, err error, message string) {
	if storage.IsCanceled(err) {
		w.WriteHeader(server.StatusClientClosedRequest)
		return
	}
	slog.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// writeServiceError maps a service error to a response. notFound is the
// message used for storage.ErrNotFound.
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	var ve ValidationErrors
	var tooLarge *http.MaxBytesError
	var upstream *httpclient.StatusError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, ve.Error())
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "Request body too large")
	case errors.Is(err, errInvalidBody):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
	case errors.Is(err, storage.ErrCanceled):
		w.WriteHeader(server.StatusClientClosedRequest)
	case errors.Is(err, storage.ErrInvalidPage), errors.Is(err, storage.ErrLimitExceeded):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, storage.ErrMissingOwner):
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "User not authenticated")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, notFound)
	case errors.Is(err, storage.ErrNotOwner):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "Not allowed to modify this record")
	case errors.Is(err, users.ErrUserExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "User already exists")
	case errors.Is(err, storage.ErrExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "Record already exists")
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials")
	case errors.Is(err, users.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid or expired token")
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Message text is required")
	case errors.Is(err, geocode.ErrMissingAddress):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Address is required")
	case errors.Is(err, geocode.ErrNotConfigured):
		writeError(w, http.StatusNotImplemented, ErrCodeNotImplemented, "Geocoding is not configured")
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "Upstream service failed")
	case errors.Is(err, storage.ErrStoreUnavailable):
		slog.Error("Store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Store unavailable")
	default:
		writeInternalError(w, err, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// envelope is the response body of the account API.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

type messageResponse struct {
	Message string `json:"message"`
}

func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	read := func(next http.HandlerFunc) http.HandlerFunc {
		return withTimeout(next, h.cfg.RequestTimeout)
	}
	write := func(next http.HandlerFunc) http.HandlerFunc {
		return withTimeout(maxBodySize(next, h.cfg.MaxBodySize), h.cfg.RequestTimeout)
	}

	if h.deps.Profiles != nil {
		mux.HandleFunc("GET /api/profile", read(h.session(h.handleGetProfile)))
		mux.HandleFunc("PUT /api/profile", write(h.session(h.handleUpdateProfile)))
	}

	if h.deps.Transport != nil {
		mux.HandleFunc("GET /api/transport", read(h.session(h.handleListTransport)))
		mux.HandleFunc("POST /api/transport", write(h.session(h.handleCreateTransport)))
		mux.HandleFunc("GET /api/transport/my", read(h.session(h.handleListMyTransport)))
		mux.HandleFunc("DELETE /api/transport/{id}", read(h.session(h.handleDeleteTransport)))
	}

	if h.deps.Users != nil {
		// Credential endpoints get the stricter limiter.
		mux.HandleFunc("POST /api/users/register", write(h.rateLimited(h.handleRegister)))
		mux.HandleFunc("POST /api/users/login", write(h.rateLimited(h.handleLogin)))
		mux.HandleFunc("POST /api/users/resend-verification", write(h.rateLimited(h.handleResendVerification)))
		mux.HandleFunc("GET /api/users/verify-email/{token}", read(h.handleVerifyEmail))
		mux.HandleFunc("GET /api/users/profile", read(h.account(h.handleGetAccount)))
		mux.HandleFunc("PUT /api/users/profile", write(h.account(h.handleUpdateAccount)))
		mux.HandleFunc("GET /api/users/users", read(h.account(h.handleListUsers)))
		mux.HandleFunc("GET /api/admin/users", read(h.adminOnly(h.handleListUsers)))
	}

	if h.deps.Dashboard != nil {
		mux.HandleFunc("GET /api/dashboard", read(h.session(h.handleDashboard)))
	}

	if h.deps.Chat != nil {
		// The model may take a while to answer.
		mux.HandleFunc("GET /api/chat/history", read(h.session(h.handleChatHistory)))
		mux.HandleFunc("POST /api/chat/message", withTimeout(maxBodySize(h.session(h.handleChatMessage), h.cfg.MaxBodySize), h.cfg.ChatTimeout))
	}

	if h.deps.Geocoder != nil {
		mux.HandleFunc("GET /api/geocode", read(h.session(h.handleGeocode)))
	}

	// Health Check (no auth, minimal timeout)
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, 5*time.Second))
}

func (h *Handler) session(handler http.HandlerFunc) http.HandlerFunc {
	protected := identity.Middleware(h.deps.Sessions)(handler)
	return protected.ServeHTTP
}

func (h *Handler) account(handler http.HandlerFunc) http.HandlerFunc {
	protected := identity.Middleware(h.deps.Accounts)(handler)
	return protected.ServeHTTP
}

func (h *Handler) adminOnly(handler http.HandlerFunc) http.HandlerFunc {
	protected := identity.Middleware(h.deps.Sessions)(identity.AdminOnly(h.deps.Admin)(handler))
	return protected.ServeHTTP
}

func (h *Handler) rateLimited(handler http.HandlerFunc) http.HandlerFunc {
	return h.deps.AuthRateLimit(handler).ServeHTTP
}
