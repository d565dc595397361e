package gdrive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tonimelisma/drivepull/internal/tokenfile"
)

// driveScope grants full Drive access — required because the job
// deletes remote nodes, not just reads them.
const driveScope = "https://www.googleapis.com/auth/drive"

// ErrNotLoggedIn is returned when no saved token exists for the profile.
var ErrNotLoggedIn = errors.New("gdrive: not logged in")

// Credentials identifies the OAuth2 installed-app client. Google issues
// these per project; they come from the config file, not this package.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// oauthConfig builds the oauth2 config for the Google authorization
// endpoint. RedirectURL is filled in once the callback port is known.
func oauthConfig(creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{driveScope},
	}
}

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// Login performs the authorization code + PKCE flow:
//  1. Binds a localhost HTTP server on a random port
//  2. Opens the browser to Google's authorization endpoint
//  3. Receives the callback with the authorization code
//  4. Exchanges the code for tokens using PKCE
//  5. Saves the token to disk at tokenPath
//  6. Returns a TokenSource for use with Client
//
// openURL is called with the authorization URL; the CLI uses it to
// launch the default browser. If openURL returns an error, the URL is
// printed to stderr so the user can open it manually.
//
// The caller is responsible for computing tokenPath (via config) —
// this keeps gdrive free of a config import.
func Login(
	ctx context.Context,
	tokenPath string,
	creds Credentials,
	openURL func(string) error,
	logger *slog.Logger,
) (TokenSource, error) {
	cfg := oauthConfig(creds)

	logger.Info("starting browser auth flow (authorization code + PKCE)",
		slog.String("path", tokenPath),
	)

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, logger)

	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("gdrive: generating state token: %w", err)
	}

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, resultCh)
	})

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	launchBrowser(authURL, openURL, logger)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	return exchangeAndSave(ctx, cfg, tokenPath, code, verifier, logger)
}

// Logout removes the saved token file. Missing file is not an error.
func Logout(tokenPath string, logger *slog.Logger) error {
	if err := tokenfile.Remove(tokenPath); err != nil {
		return fmt.Errorf("gdrive: removing token: %w", err)
	}

	logger.Info("token removed", slog.String("path", tokenPath))

	return nil
}

// TokenSourceFromFile loads a saved token and returns a refreshing
// TokenSource bound to ctx. Returns ErrNotLoggedIn when no token file
// exists.
func TokenSourceFromFile(
	ctx context.Context,
	tokenPath string,
	creds Credentials,
	logger *slog.Logger,
) (TokenSource, error) {
	tok, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, ErrNotLoggedIn
	}

	cfg := oauthConfig(creds)
	src := cfg.TokenSource(ctx, tok)

	return &tokenBridge{src: src, tokenPath: tokenPath, logger: logger}, nil
}

// tokenBridge adapts an oauth2.TokenSource to the string-token interface
// the Client consumes, persisting refreshed tokens back to disk so the
// next invocation reuses them.
type tokenBridge struct {
	src       oauth2.TokenSource
	tokenPath string
	last      string
	logger    *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	tok, err := b.src.Token()
	if err != nil {
		return "", fmt.Errorf("gdrive: obtaining token: %w", err)
	}

	if b.tokenPath != "" && tok.AccessToken != b.last {
		b.last = tok.AccessToken

		if saveErr := tokenfile.Save(b.tokenPath, tok); saveErr != nil {
			// Refresh persistence is best-effort; the in-memory token still works.
			b.logger.Warn("failed to persist refreshed token",
				slog.String("path", b.tokenPath),
				slog.String("error", saveErr.Error()),
			)
		}
	}

	return tok.AccessToken, nil
}

// generateState returns a random hex string for the OAuth2 state parameter.
func generateState() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

// startCallbackServer binds to 127.0.0.1:0 and starts an HTTP server with
// the given mux. Returns the server, the port, and any error.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("gdrive: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("gdrive: listener address is not TCP")
	}

	port := tcpAddr.Port
	logger.Info("callback server listening", slog.Int("port", port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("gdrive: callback server error: %w", serveErr)}
		}
	}()

	return srv, port, nil
}

// handleOAuthCallback validates the state, extracts the code, and sends the result.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	// Validate state to prevent CSRF.
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("gdrive: OAuth2 state mismatch (possible CSRF)")}

		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		desc := r.URL.Query().Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("gdrive: authorization failed: %s: %s", errParam, desc)}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("gdrive: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Best-effort shutdown — log but don't propagate since we're in a defer.
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the auth URL. If it fails, prints the URL
// to stderr as a fallback so the user can copy-paste it.
func launchBrowser(authURL string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("gdrive: browser auth canceled: %w", ctx.Err())
	}
}

// exchangeAndSave exchanges the auth code for a token and persists it.
func exchangeAndSave(
	ctx context.Context,
	cfg *oauth2.Config,
	tokenPath, code, verifier string,
	logger *slog.Logger,
) (TokenSource, error) {
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("gdrive: exchanging authorization code: %w", err)
	}

	if saveErr := tokenfile.Save(tokenPath, tok); saveErr != nil {
		return nil, fmt.Errorf("gdrive: saving token: %w", saveErr)
	}

	logger.Info("login successful",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return &tokenBridge{src: cfg.TokenSource(ctx, tok), tokenPath: tokenPath, logger: logger}, nil
}
