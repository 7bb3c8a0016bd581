package auth

import (
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/beekhof/calendar-toggl/internal/config"
	"github.com/beekhof/calendar-toggl/internal/prompt"

	"golang.org/x/oauth2"
)

// loopbackTimeout bounds how long the loopback flow waits for the browser.
const loopbackTimeout = 5 * time.Minute

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// autoSaveTokenSource wraps an oauth2.TokenSource and automatically saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	lastToken  *oauth2.Token
}

// Token implements oauth2.TokenSource and saves the token if it was refreshed.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}

// Authorizer obtains a Google Calendar credential, running the interactive
// consent flow when the token store is empty.
type Authorizer struct {
	OAuthConfig *oauth2.Config
	Store       TokenStore
	Flow        string // config.AuthFlowPaste or config.AuthFlowLoopback
	Input       prompt.Prompter
	Out         io.Writer
}

// Client returns an authenticated HTTP client. Refreshed tokens are written
// back to the store.
func (a *Authorizer) Client(ctx context.Context) (*http.Client, error) {
	token, err := a.Store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	// If token is nil (first run), perform interactive OAuth flow
	if token == nil {
		var code string
		if a.Flow == config.AuthFlowLoopback {
			code, err = a.codeFromLoopback(ctx)
		} else {
			code, err = a.codeFromPrompt()
		}
		if err != nil {
			return nil, err
		}

		token, err = a.OAuthConfig.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}

		if err := a.Store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
		log.Println("Authorization successful, token saved")
	}

	tokenSource := a.OAuthConfig.TokenSource(ctx, token)
	autoSaveSource := &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, tokenSource),
		tokenStore: a.Store,
		lastToken:  token,
	}

	return oauth2.NewClient(ctx, autoSaveSource), nil
}

// codeFromPrompt shows the consent URL and reads the pasted code.
func (a *Authorizer) codeFromPrompt() (string, error) {
	a.OAuthConfig.RedirectURL = config.OOBRedirectURL
	authURL := a.OAuthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	fmt.Fprintln(a.Out, "Open the following URL in the browser and enter the resulting code after authorization:")
	fmt.Fprintln(a.Out, authURL)

	code, err := a.Input.Prompt("Enter the authorization code:")
	if err != nil {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("no authorization code received")
	}
	return code, nil
}

// codeFromLoopback shows the consent URL and waits for the browser redirect.
func (a *Authorizer) codeFromLoopback(ctx context.Context) (string, error) {
	redirectURL, codeChan, errorChan, err := startLocalServer()
	if err != nil {
		return "", fmt.Errorf("failed to start local server: %w", err)
	}

	a.OAuthConfig.RedirectURL = redirectURL
	authURL := a.OAuthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Fprintf(a.Out, "Starting local server on %s\n", redirectURL)
	fmt.Fprintln(a.Out, "Please visit the following URL to authorize the application:")
	fmt.Fprintln(a.Out, authURL)
	fmt.Fprintln(a.Out, "Waiting for authorization...")

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errorChan:
		return "", fmt.Errorf("failed to receive authorization code: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(loopbackTimeout):
		return "", fmt.Errorf("authorization timeout: no response received within %s", loopbackTimeout)
	}
}

// startLocalServer starts a local HTTP server to receive the OAuth callback.
// Returns the redirect URL, a channel for the authorization code, and a channel for errors.
// Uses port 8080 by default, or a random port if 8080 is unavailable.
func startLocalServer() (string, <-chan string, <-chan error, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:8080")
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to start local server: %w", err)
		}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	server.Handler = callbackHandler(codeChan, errorChan, func() {
		go func() {
			time.Sleep(1 * time.Second)
			server.Shutdown(context.Background())
		}()
	})

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errorChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	return redirectURL, codeChan, errorChan, nil
}

// callbackHandler reports the first code or error it sees, then calls done.
func callbackHandler(codeChan chan<- string, errorChan chan<- error, done func()) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		switch {
		case code != "":
			fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
			send(codeChan, code)
		case r.URL.Query().Get("error") != "":
			errMsg := r.URL.Query().Get("error")
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>Error: %s</p></body></html>", html.EscapeString(errMsg))
			send(errorChan, fmt.Errorf("authorization error: %s", errMsg))
		default:
			fmt.Fprintf(w, "<html><body><h1>No authorization code received</h1></body></html>")
			send(errorChan, fmt.Errorf("no authorization code received"))
		}
		done()
	})
	return mux
}

// send never blocks; only the first value matters.
func send[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
