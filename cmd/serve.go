package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcptools "github.com/giantswarm/template-eval/internal/mcp"
	"github.com/giantswarm/template-eval/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		transport    string
		httpAddr     string
		httpEndpoint string

		enableOAuth bool
		oauthCfg    server.OAuthConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose template evaluation tools via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

When using streamable-http transport, OAuth 2.1 authentication can be enabled.
Prompt, parse and reference tools work without a model; evaluate_template and
rank_components need a configured judge model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			parser, err := newParser(cfg)
			if err != nil {
				return err
			}

			sc := &server.ServerContext{
				Evaluation:    evaluatorConfig(cfg),
				Parser:        parser,
				ReferencesDir: cfg.ReferencesDir,
				OutputDir:     cfg.OutputDir,
			}

			client, err := newLLMClient(cfg)
			if err != nil {
				slog.Warn("judge model not available", "error", err)
			} else {
				sc.LLMClient = client
			}

			ctx := cmd.Context()
			if ctx == nil {
				// Nil when the root command delegates without executing serve.
				ctx = context.Background()
			}
			tel, stopTelemetry, err := startTelemetry(ctx, cfg)
			if err != nil {
				return err
			}
			defer stopTelemetry()
			sc.Metrics = tel.Metrics

			mcpSrv := mcpserver.NewMCPServer("template-eval", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)
			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch transport {
			case transportStdio:
				if err := mcpserver.ServeStdio(mcpSrv); err != nil {
					return fmt.Errorf("server stopped with error: %w", err)
				}
				return nil
			case transportStreamableHTTP:
				var oauth *server.OAuthConfig
				if enableOAuth {
					oauthCfg.FillFromEnv()
					oauth = &oauthCfg
				}
				httpSrv, err := server.NewHTTPServer(mcpSrv, httpEndpoint, oauth)
				if err != nil {
					return fmt.Errorf("failed to create HTTP server: %w", err)
				}
				printHTTPEndpoints(httpSrv, httpAddr, httpEndpoint, oauth)
				return runHTTPServer(shutdownCtx, httpSrv, httpAddr)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: %s, %s)", transport, transportStdio, transportStreamableHTTP)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	cmd.Flags().String("output-dir", "", "Directory for evaluation results (default from config: results)")
	cmd.Flags().String("references-dir", "", "External reference templates directory")
	cmd.Flags().String("source", "", "Institution the reference templates come from (default: Stanford)")
	addModelFlags(cmd)

	cmd.Flags().BoolVar(&enableOAuth, "enable-oauth", false, "Enable OAuth 2.1 authentication (for HTTP transport)")
	cmd.Flags().StringVar(&oauthCfg.BaseURL, "oauth-base-url", "", "OAuth base URL (e.g. https://template-eval.example.com)")
	cmd.Flags().StringVar(&oauthCfg.Provider, "oauth-provider", server.OAuthProviderDex, "OAuth provider: dex")
	cmd.Flags().StringVar(&oauthCfg.DexIssuerURL, "dex-issuer-url", "", "Dex OIDC issuer URL (or DEX_ISSUER_URL)")
	cmd.Flags().StringVar(&oauthCfg.DexClientID, "dex-client-id", "", "Dex OAuth client ID (or DEX_CLIENT_ID)")
	cmd.Flags().StringVar(&oauthCfg.DexClientSecret, "dex-client-secret", "", "Dex OAuth client secret (or DEX_CLIENT_SECRET)")

	return cmd
}

func printHTTPEndpoints(srv *server.HTTPServer, addr, endpoint string, oauth *server.OAuthConfig) {
	fmt.Printf("Starting template-eval MCP server on %s\n", addr)
	if !srv.OAuthEnabled() {
		fmt.Printf("  MCP endpoint: %s\n", endpoint)
		fmt.Printf("  Health: %s\n", server.HealthPath)
		return
	}
	fmt.Printf("  Base URL: %s\n", oauth.BaseURL)
	fmt.Printf("  MCP endpoint: %s (requires OAuth Bearer token)\n", endpoint)
	fmt.Printf("  Health: %s\n", server.HealthPath)
	fmt.Printf("  OAuth endpoints:\n")
	fmt.Printf("    - Authorization Server Metadata: /.well-known/oauth-authorization-server\n")
	fmt.Printf("    - Protected Resource Metadata: /.well-known/oauth-protected-resource\n")
	fmt.Printf("    - Client Registration: /oauth/register\n")
	fmt.Printf("    - Authorization: /oauth/authorize\n")
	fmt.Printf("    - Token: /oauth/token\n")
	fmt.Printf("    - Callback: /oauth/callback\n")
}

func runHTTPServer(ctx context.Context, srv *server.HTTPServer, addr string) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	fmt.Println("HTTP server stopped")
	return nil
}
