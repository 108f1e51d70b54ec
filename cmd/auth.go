package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lunamare/tidesync/internal/server"
	"github.com/lunamare/tidesync/internal/services"
	"github.com/lunamare/tidesync/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const (
	providerSpotify = "spotify"
	providerTidal   = "tidal"
)

// AuthSpotify performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	config := r.reloadConfig(cmd)

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(config, svc, providerSpotify)
	if err != nil {
		return err
	}

	if err := r.saveTokens(providerSpotify, token); err != nil {
		return err
	}

	r.writePlainln("✓ Spotify authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: tidesync playlists spotify\n")

	return nil
}

// AuthTidal performs the OAuth2 authorization flow for Tidal.
func (r *Runner) AuthTidal(ctx context.Context, cmd *cli.Command) error {
	config := r.reloadConfig(cmd)

	if config.Credentials.Tidal.ClientID == "" {
		return fmt.Errorf("%w: Tidal client_id must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewTidalService(config.Credentials.Tidal.Map())
	if err != nil {
		return fmt.Errorf("failed to create Tidal service: %w", err)
	}

	token, err := r.doOAuth(config, svc, providerTidal)
	if err != nil {
		return err
	}

	if err := r.saveTokens(providerTidal, token); err != nil {
		return err
	}

	r.writePlainln("✓ Tidal authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: tidesync sync all\n")

	return nil
}

// AuthStatus reports which services have saved tokens and whether they expired.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.reloadConfig(cmd)

	report := func(name string, token *oauth2.Token) {
		if token == nil {
			r.writePlain("%s: ✗ Not authenticated\n", name)
			return
		}
		switch {
		case token.Expiry.IsZero():
			r.writePlain("%s: ✓ Authenticated\n", name)
		case time.Now().After(token.Expiry):
			r.writePlain("%s: ⚠ Token expired %s\n", name, token.Expiry.Format(time.RFC3339))
		default:
			r.writePlain("%s: ✓ Authenticated (expires %s)\n", name, token.Expiry.Format(time.RFC3339))
		}
	}

	report("Spotify", config.Credentials.Spotify.Token())
	report("Tidal", config.Credentials.Tidal.Token())
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, provider string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), provider, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", provider, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for %s authorization...\n", provider)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
