package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/preangelleo/ghost-blog-management-mcp/internal/auth"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/config"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/httputil"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/tools"
)

// HTTPServer wraps MCP HTTP routing state.
type HTTPServer struct {
	cfg      config.Config
	version  string
	commit   string
	build    string
	contract []byte
	catalog  *tools.Catalog
	gate     *AccessGate
	authn    SessionAuthenticator
	caller   ToolCaller
	oauth    *auth.OAuthFlow
	ready    func() error
	logger   zerolog.Logger
}

// NewHTTPServer creates an HTTP transport server with health and MCP routes.
func NewHTTPServer(
	cfg config.Config,
	version, commit, buildDate string,
	contract []byte,
	catalog *tools.Catalog,
	gate *AccessGate,
	authn SessionAuthenticator,
	caller ToolCaller,
	oauth *auth.OAuthFlow,
	ready func() error,
	logger zerolog.Logger,
) *HTTPServer {
	if ready == nil {
		ready = func() error { return nil }
	}
	return &HTTPServer{
		cfg:      cfg,
		version:  version,
		commit:   commit,
		build:    buildDate,
		contract: contract,
		catalog:  catalog,
		gate:     gate,
		authn:    authn,
		caller:   caller,
		oauth:    oauth,
		ready:    ready,
		logger:   logger,
	}
}

// Router builds the MCP HTTP router.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(httputil.RequestID)
	r.Use(httputil.RequestLogger(s.logger))
	r.Use(httputil.Recoverer)
	r.Use(httputil.SecureHeaders)
	r.Use(httputil.BodyLimit(1 << 20))
	r.Use(httputil.Metrics)

	registerHealthRoutes(r, s.version, s.commit, s.build, s.cfg.MetricsEnabled, s.ready)
	registerMCPHTTPRoutes(r, s.catalog, s.gate, s.authn, s.caller, s.version, s.logger)

	if s.oauth != nil {
		registerOAuthRoutes(r, s.oauth, s.logger)
	}

	r.Get("/api/tools.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(s.contract)
	})

	return r
}

func registerOAuthRoutes(r chi.Router, flow *auth.OAuthFlow, logger zerolog.Logger) {
	r.Get("/oauth/login", func(w http.ResponseWriter, req *http.Request) {
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     "mcp_oauth_state",
			Value:    state,
			Path:     "/oauth",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, req, flow.AuthCodeURL(state), http.StatusFound)
	})

	r.Get("/oauth/callback", func(w http.ResponseWriter, req *http.Request) {
		state := strings.TrimSpace(req.URL.Query().Get("state"))
		cookie, err := req.Cookie("mcp_oauth_state")
		if err != nil || state == "" || cookie.Value != state {
			httputil.RespondProblem(w, req, http.StatusBadRequest, "oauth state mismatch")
			return
		}

		code := strings.TrimSpace(req.URL.Query().Get("code"))
		if code == "" {
			httputil.RespondProblem(w, req, http.StatusBadRequest, "missing authorization code")
			return
		}

		token, identity, err := flow.Exchange(req.Context(), code)
		if err != nil {
			logger.Warn().Err(err).Msg("oauth code exchange failed")
			httputil.RespondProblem(w, req, http.StatusBadGateway, "oauth code exchange failed")
			return
		}

		logger.Info().Str("handle", identity.Handle).Msg("oauth session established")
		httputil.RespondJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"handle":       identity.Handle,
			"display_name": identity.DisplayName,
		})
	})
}
