package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/template-eval/internal/evaluator"
	"github.com/giantswarm/template-eval/internal/testutil"
)

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "https is valid", baseURL: "https://template-eval.example.com"},
		{name: "localhost http is valid", baseURL: "http://localhost:8080"},
		{name: "127.0.0.1 http is valid", baseURL: "http://127.0.0.1:8080"},
		{name: "ipv6 loopback http is valid", baseURL: "http://[::1]:8080"},
		{name: "non-localhost http is invalid", baseURL: "http://example.com", wantErr: true},
		{name: "empty URL is invalid", baseURL: "", wantErr: true},
		{name: "ftp scheme is invalid", baseURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPSRequirement(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOAuthConfigValidate(t *testing.T) {
	valid := OAuthConfig{
		BaseURL:         "https://template-eval.example.com",
		Provider:        OAuthProviderDex,
		DexIssuerURL:    "https://dex.example.com",
		DexClientID:     "template-eval",
		DexClientSecret: "secret",
	}

	tests := []struct {
		name    string
		mutate  func(c *OAuthConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*OAuthConfig) {}},
		{name: "empty provider means dex", mutate: func(c *OAuthConfig) { c.Provider = "" }},
		{name: "unknown provider", mutate: func(c *OAuthConfig) { c.Provider = "okta" }, wantErr: `unsupported OAuth provider "okta"`},
		{name: "plain http base URL", mutate: func(c *OAuthConfig) { c.BaseURL = "http://example.com" }, wantErr: "OAuth base URL validation failed"},
		{name: "missing issuer", mutate: func(c *OAuthConfig) { c.DexIssuerURL = "" }, wantErr: "dex issuer URL is required"},
		{name: "missing client ID", mutate: func(c *OAuthConfig) { c.DexClientID = "" }, wantErr: "dex client ID is required"},
		{name: "missing secret", mutate: func(c *OAuthConfig) { c.DexClientSecret = "" }, wantErr: "dex client secret is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOAuthConfigFillFromEnv(t *testing.T) {
	t.Setenv("DEX_ISSUER_URL", "https://dex.example.com")
	t.Setenv("DEX_CLIENT_ID", "from-env")
	t.Setenv("DEX_CLIENT_SECRET", "env-secret")

	cfg := OAuthConfig{DexClientID: "from-flag"}
	cfg.FillFromEnv()

	assert.Equal(t, "https://dex.example.com", cfg.DexIssuerURL)
	assert.Equal(t, "from-flag", cfg.DexClientID)
	assert.Equal(t, "env-secret", cfg.DexClientSecret)
}

func TestHTTPServerWithoutOAuth(t *testing.T) {
	mcpSrv := mcpserver.NewMCPServer("template-eval", "test")
	srv, err := NewHTTPServer(mcpSrv, "/mcp", nil)
	require.NoError(t, err)
	assert.False(t, srv.OAuthEnabled())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	missing, err := http.Get(ts.URL + "/oauth/token")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestNewHTTPServerRejectsInvalidOAuth(t *testing.T) {
	mcpSrv := mcpserver.NewMCPServer("template-eval", "test")
	_, err := NewHTTPServer(mcpSrv, "/mcp", &OAuthConfig{BaseURL: "http://example.com"})
	assert.ErrorContains(t, err, "OAuth base URL validation failed")
}

func TestServerContextNewEvaluator(t *testing.T) {
	sc := &ServerContext{}
	_, err := sc.NewEvaluator("", 0)
	assert.EqualError(t, err, "LLM client is not configured")

	sc = &ServerContext{
		LLMClient:  &testutil.MockLLMClient{},
		Evaluation: evaluator.Config{Model: "judge", Repetitions: 3, Source: "Stanford"},
	}

	ev, err := sc.NewEvaluator("", 0)
	require.NoError(t, err)
	assert.Equal(t, "judge", ev.Config().Model)
	assert.Equal(t, 3, ev.Config().Repetitions)

	ev, err = sc.NewEvaluator("other", 5)
	require.NoError(t, err)
	assert.Equal(t, "other", ev.Config().Model)
	assert.Equal(t, 5, ev.Config().Repetitions)
	assert.Equal(t, "Stanford", ev.Config().Source)

	assert.NotNil(t, sc.ResponseParser())
}
