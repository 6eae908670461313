package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"go.withmatt.com/otpwatch/internal/log"
)

const callbackPath = "/oauth2callback"

// ClientConfig reads the application's OAuth client identity from a Google
// client-secret JSON file and requests read-only mail access.
func ClientConfig(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("client secret file %s not found; download it from the Google Cloud console", path)
		}
		return nil, err
	}
	cfg, err := google.ConfigFromJSON(data, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	return cfg, nil
}

// BrowserAuthorizer runs the installed-app flow: a loopback callback server,
// PKCE, and the system browser.
type BrowserAuthorizer struct {
	// OpenURL opens the consent page. Defaults to the system browser.
	OpenURL func(url string) error
	// Timeout bounds the wait for the callback. Defaults to two minutes.
	Timeout time.Duration
	// Prompt, if set, receives the consent URL for the user.
	Prompt io.Writer
}

func (a BrowserAuthorizer) Authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	if config == nil {
		return nil, errors.New("missing oauth config")
	}
	openURL := a.OpenURL
	if openURL == nil {
		openURL = browser.OpenURL
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("unable to start oauth callback server: %w", err)
	}
	defer listener.Close()

	cfg := *config
	cfg.RedirectURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), callbackPath)

	state, err := randomState()
	if err != nil {
		return nil, err
	}
	pkceVerifier, pkceChallenge, err := generatePKCE()
	if err != nil {
		return nil, err
	}

	authURL := cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", pkceChallenge),
	)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
			report(errors.New("oauth state mismatch"))
			return
		}
		if errText := q.Get("error"); errText != "" {
			http.Error(w, errText, http.StatusBadRequest)
			report(fmt.Errorf("oauth error: %s", errText))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing code parameter.", http.StatusBadRequest)
			report(errors.New("oauth callback missing code"))
			return
		}
		_, _ = w.Write([]byte("otpwatch authentication complete. You can close this window."))
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			report(err)
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	if a.Prompt != nil {
		fmt.Fprintf(a.Prompt, "Opening your browser to authorize otpwatch. If it does not open, visit:\n\n  %s\n\n", authURL)
	}
	if err := openURL(authURL); err != nil {
		log.Warnf("open this URL to authorize: %s", authURL)
	} else {
		log.Printf("If your browser does not open, visit: %v", authURL)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(
			ctx,
			code,
			oauth2.SetAuthURLParam("code_verifier", pkceVerifier),
		)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-waitCtx.Done():
		return nil, errors.New("timed out waiting for oauth callback")
	}
}

func generatePKCE() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("unable to generate PKCE verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

func randomState() (string, error) {
	const size = 16
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("unable to generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
