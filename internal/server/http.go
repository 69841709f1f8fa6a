package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	// OAuthProviderDex is the Dex OIDC provider.
	OAuthProviderDex = "dex"

	// HealthPath is served without authentication.
	HealthPath = "/healthz"

	defaultReadHeaderTimeout = 10 * time.Second
	// Evaluations stream long replies; keep the write deadline generous.
	defaultWriteTimeout    = 300 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxClientsPerIP = 10
)

// OAuthConfig holds configuration for OAuth 2.1 protection of the MCP endpoint.
type OAuthConfig struct {
	// BaseURL is the server's public base URL (e.g. https://template-eval.example.com).
	BaseURL string

	// Provider is the OAuth provider name. Only "dex" is supported.
	Provider string

	DexIssuerURL    string
	DexClientID     string
	DexClientSecret string
}

// FillFromEnv sets the Dex settings that are still empty from DEX_ISSUER_URL,
// DEX_CLIENT_ID and DEX_CLIENT_SECRET.
func (c *OAuthConfig) FillFromEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&c.DexIssuerURL, "DEX_ISSUER_URL")
	fill(&c.DexClientID, "DEX_CLIENT_ID")
	fill(&c.DexClientSecret, "DEX_CLIENT_SECRET")
}

// Validate reports the first missing or invalid setting.
func (c *OAuthConfig) Validate() error {
	if c.Provider != "" && c.Provider != OAuthProviderDex {
		return fmt.Errorf("unsupported OAuth provider %q (supported: %s)", c.Provider, OAuthProviderDex)
	}
	if err := validateHTTPSRequirement(c.BaseURL); err != nil {
		return fmt.Errorf("OAuth base URL validation failed: %w", err)
	}
	switch {
	case c.DexIssuerURL == "":
		return errors.New("dex issuer URL is required (--dex-issuer-url or DEX_ISSUER_URL)")
	case c.DexClientID == "":
		return errors.New("dex client ID is required (--dex-client-id or DEX_CLIENT_ID)")
	case c.DexClientSecret == "":
		return errors.New("dex client secret is required (--dex-client-secret or DEX_CLIENT_SECRET)")
	}
	return nil
}

// HTTPServer serves the MCP server over streamable HTTP, optionally behind
// OAuth 2.1 token validation.
type HTTPServer struct {
	mcpServer    *mcpserver.MCPServer
	mcpEndpoint  string
	oauthServer  *oauth.Server
	oauthHandler *oauth.Handler
	httpServer   *http.Server
}

// NewHTTPServer creates an HTTP server for mcpSrv. A nil oauthCfg serves the
// MCP endpoint without authentication.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, mcpEndpoint string, oauthCfg *OAuthConfig) (*HTTPServer, error) {
	s := &HTTPServer{
		mcpServer:   mcpSrv,
		mcpEndpoint: mcpEndpoint,
	}
	if oauthCfg == nil {
		return s, nil
	}

	if err := oauthCfg.Validate(); err != nil {
		return nil, err
	}

	dexProvider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    oauthCfg.DexIssuerURL,
		ClientID:     oauthCfg.DexClientID,
		ClientSecret: oauthCfg.DexClientSecret,
		RedirectURL:  oauthCfg.BaseURL + "/oauth/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex provider: %w", err)
	}

	// Tokens and clients live in memory; the server runs as a single instance.
	store := memory.New()
	logger := slog.Default()

	s.oauthServer, err = oauth.NewServer(
		dexProvider,
		store,
		store,
		store,
		&oauthserver.Config{
			Issuer:                    oauthCfg.BaseURL,
			AllowRefreshTokenRotation: true,
			MaxClientsPerIP:           defaultMaxClientsPerIP,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}
	s.oauthHandler = oauth.NewHandler(s.oauthServer, logger)

	return s, nil
}

// OAuthEnabled reports whether the MCP endpoint requires a bearer token.
func (s *HTTPServer) OAuthEnabled() bool {
	return s.oauthHandler != nil
}

// Handler returns the routes of the server.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	var mcpHandler http.Handler = mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(s.mcpEndpoint),
	)

	if s.OAuthEnabled() {
		s.oauthHandler.RegisterAuthorizationServerMetadataRoutes(mux)
		s.oauthHandler.RegisterProtectedResourceMetadataRoutes(mux, s.mcpEndpoint)
		mux.HandleFunc("/oauth/authorize", s.oauthHandler.ServeAuthorization)
		mux.HandleFunc("/oauth/token", s.oauthHandler.ServeToken)
		mux.HandleFunc("/oauth/callback", s.oauthHandler.ServeCallback)
		mux.HandleFunc("/oauth/register", s.oauthHandler.ServeClientRegistration)
		mux.HandleFunc("/oauth/revoke", s.oauthHandler.ServeTokenRevocation)
		mux.HandleFunc("/oauth/introspect", s.oauthHandler.ServeTokenIntrospection)
		mcpHandler = s.oauthHandler.ValidateToken(mcpHandler)
	}

	mux.Handle(s.mcpEndpoint, mcpHandler)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// Start listens on addr until Shutdown is called. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *HTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.oauthServer != nil {
		if err := s.oauthServer.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OAuth server", "error", err)
		}
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateHTTPSRequirement allows plain HTTP only for loopback hosts.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth 2.1 requires HTTPS outside localhost (got: %s)", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme: %s (must be http for localhost or https)", u.Scheme)
	}
}
