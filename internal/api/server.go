package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/internal/api/ratelimit"
	"github.com/bit2swaz/foodstagram/internal/chef"
	"github.com/bit2swaz/foodstagram/internal/database"
	"github.com/bit2swaz/foodstagram/internal/recipe"
	pkgapi "github.com/bit2swaz/foodstagram/pkg/api"
	"github.com/bit2swaz/foodstagram/pkg/observability"
	"github.com/bit2swaz/foodstagram/pkg/storage"
)

const defaultSessionTTL = 30 * 24 * time.Hour

// Options carries the optional collaborators of a Server.
type Options struct {
	SessionTTL time.Duration
	// Media archives generated videos. Nil returns provider URIs as-is.
	Media storage.Driver
	// MediaFiles mounts GET /media/* when media is stored on local disk.
	MediaFiles pkgapi.FileResolver
	// TrustProxyHeaders takes the client address from X-Real-IP or
	// X-Forwarded-For. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
	Now               func() time.Time
}

// Server exposes HTTP handlers for recipes, videos and the cookbook.
type Server struct {
	store      database.Store
	provider   chef.Provider
	limiter    *ratelimit.Limiter
	media      storage.Driver
	sessionTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
	router     chi.Router
}

// NewServer constructs a new Server instance. The limiter is owned by the
// caller, which is also responsible for running its sweep.
func NewServer(store database.Store, provider chef.Provider, limiter *ratelimit.Limiter, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	srv := &Server{
		store:      store,
		provider:   provider,
		limiter:    limiter,
		media:      opts.Media,
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		logger:     logger,
	}

	router := chi.NewRouter()
	if opts.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(observability.MetricsMiddleware)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", observability.Handler())

	if opts.MediaFiles != nil {
		router.Get("/media/*", pkgapi.NewMediaHandler(opts.MediaFiles, logger).HandleDownload)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", srv.HandleRegister)
			r.Post("/login", srv.HandleLogin)
			r.With(srv.AuthMiddleware).Post("/logout", srv.HandleLogout)
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Use(srv.OptionalAuthMiddleware)
			r.Post("/generate", srv.HandleGenerate)
			r.Post("/video", srv.HandleVideo)
		})

		r.Route("/cookbook", func(r chi.Router) {
			r.Use(srv.AuthMiddleware)
			r.Get("/", srv.HandleListCookbook)
			r.Post("/", srv.HandleSaveRecipe)
			r.Post("/toggle", srv.HandleToggleRecipe)
			r.Get("/{id}", srv.HandleGetRecipe)
			r.Patch("/{id}", srv.HandleUpdateRecipe)
			r.Delete("/{id}", srv.HandleDeleteRecipe)
		})
	})

	srv.router = router
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type contextKey string

const (
	userKey      contextKey = "user"
	tokenHashKey contextKey = "token_hash"
)

// userFrom returns the authenticated user, or nil for anonymous requests.
func userFrom(ctx context.Context) *recipe.User {
	u, _ := ctx.Value(userKey).(*recipe.User)
	return u
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", true
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), true
}

// authenticate resolves the bearer token. It reports false after writing an
// error response.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, required bool) (*http.Request, bool) {
	token, present := bearerToken(r)
	if !present {
		if required {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return r, false
		}
		return r, true
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return r, false
	}

	tokenHash := hashToken(token)
	user, err := s.store.SessionUser(r.Context(), tokenHash)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return r, false
		}
		s.logger.Error("session lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return r, false
	}

	ctx := context.WithValue(r.Context(), userKey, user)
	ctx = context.WithValue(ctx, tokenHashKey, tokenHash)
	return r.WithContext(ctx), true
}

// AuthMiddleware rejects requests without a valid session token.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := s.authenticate(w, r, true)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuthMiddleware attaches the user when a token is sent. A token that
// is sent but invalid is still rejected.
func (s *Server) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := s.authenticate(w, r, false)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity is the limiter key for a request.
func identity(r *http.Request) string {
	if u := userFrom(r.Context()); u != nil {
		return u.ID
	}
	return "ip:" + clientIP(r)
}

// admit consults the limiter and sets the X-RateLimit headers. On rejection
// it writes the 429 response and reports false.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) bool {
	id := identity(r)
	decision := s.limiter.CheckLimit(id)
	observability.RecordDecision(decision.Allowed)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.Limit()))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetIn.Milliseconds(), 10))

	if decision.Allowed {
		return true
	}

	s.logger.Info("request rejected by rate limiter",
		zap.String("identity", id),
		zap.Duration("reset_in", decision.ResetIn))

	w.Header().Set("Retry-After", formatRetryAfter(decision.ResetIn))
	respondJSON(w, http.StatusTooManyRequests, rateLimitResponse{
		Error:     "Too many requests. Please wait before trying again.",
		ResetInMs: decision.ResetIn.Milliseconds(),
	})
	return false
}

type rateLimitResponse struct {
	Error     string `json:"error"`
	ResetInMs int64  `json:"resetInMs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("encode json response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads at most limit bytes of JSON into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, strict bool, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	decoder := json.NewDecoder(body)
	if strict {
		decoder.DisallowUnknownFields()
	}
	return decoder.Decode(dst)
}

// clientIP keys on the transport address. Forwarding headers only count
// once middleware.RealIP has rewritten RemoteAddr from them.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// formatRetryAfter renders d in whole seconds, rounded up, never below 1.
func formatRetryAfter(d time.Duration) string {
	seconds := int64((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}
