package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/credstore"
	"github.com/router-for-me/aigateway/internal/provider/gemini"
	"github.com/router-for-me/aigateway/internal/provider/kiro"
	"github.com/router-for-me/aigateway/internal/provider/qwen"
)

// runLogin obtains a fresh OAuth credential for one of the three OAuth
// providers and writes it to disk at --out, ready to be referenced from
// config.json's *_oauth_creds_file_path fields. None of the curated source
// material implements a login flow of its own; spec.md's credential fields
// describe the on-disk shape but not how an operator first populates it, so
// this is a supplemented feature built to fit that gap.
func runLogin(argv []string, log *logrus.Logger) {
	provider, _ := stringFlag(argv, "--provider")
	outPath, _ := stringFlag(argv, "--out")
	if provider == "" {
		fmt.Fprintln(os.Stderr, "usage: aigateway login --provider <gemini-cli-oauth|qwen-oauth|claude-kiro-oauth> [--out path]")
		os.Exit(2)
	}

	entry := log.WithField("component", "login")

	var rec credstore.Record
	var encode func(credstore.Record) ([]byte, error)
	var defaultOut string
	var err error

	switch common.Provider(provider) {
	case common.ProviderGeminiOAuth:
		rec, err = loginGoogleLoopback(entry)
		encode, defaultOut = gemini.EncodeCredentials, "gemini-oauth-creds.json"
	case common.ProviderQwenOAuth:
		rec, err = pasteCredentials(entry, "Qwen")
		encode, defaultOut = qwen.EncodeCredentials, "qwen-oauth-creds.json"
	case common.ProviderClaudeKiro:
		rec, err = pasteCredentials(entry, "Kiro")
		encode, defaultOut = kiro.EncodeCredentials, "kiro-oauth-creds.json"
	default:
		entry.Errorf("unknown oauth provider %q", provider)
		os.Exit(1)
	}
	if err != nil {
		entry.WithError(err).Error("login failed")
		os.Exit(1)
	}

	if outPath == "" {
		outPath = defaultOut
	}
	raw, err := encode(rec)
	if err != nil {
		entry.WithError(err).Error("failed to encode credential")
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, raw, 0o600); err != nil {
		entry.WithError(err).Error("failed to write credential file")
		os.Exit(1)
	}

	entry.Infof("credential written to %s", outPath)
	if err := clipboard.WriteAll(outPath); err == nil {
		entry.Info("path copied to clipboard")
	}
}

// loginGoogleLoopback opens the system browser at Google's installed-app
// OAuth endpoint and catches the redirect on a one-shot loopback HTTP
// server, then exchanges the returned code for tokens.
func loginGoogleLoopback(log *logrus.Entry) (credstore.Record, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return credstore.Record{}, err
	}
	defer listener.Close()
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", listener.Addr().(*net.TCPAddr).Port)

	authURL := fmt.Sprintf("%s?%s", gemini.OAuthAuthURL, url.Values{
		"client_id":     {gemini.OAuthClientID()},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {gemini.OAuthScope},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}.Encode())

	log.Info("opening browser for Google sign-in")
	log.Infof("if the browser does not open, visit: %s", authURL)
	if err := browser.OpenURL(authURL); err != nil {
		log.WithError(err).Warn("could not open browser automatically")
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("oauth callback missing code: %s", r.URL.Query().Get("error"))
			fmt.Fprintln(w, "Login failed, you may close this tab.")
			return
		}
		codeCh <- code
		fmt.Fprintln(w, "Login complete, you may close this tab.")
	})}
	go srv.Serve(listener)
	defer srv.Close()

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return gemini.ExchangeAuthCode(ctx, http.DefaultClient, code, redirectURI)
	case err := <-errCh:
		return credstore.Record{}, err
	case <-time.After(5 * time.Minute):
		return credstore.Record{}, fmt.Errorf("timed out waiting for oauth callback")
	}
}

// pasteCredentials prompts the operator to paste an already-obtained
// access/refresh token pair, for providers whose authorization-code flow
// isn't something this gateway implements end-to-end.
func pasteCredentials(log *logrus.Entry, label string) (credstore.Record, error) {
	log.Infof("paste the %s access token (input hidden), then press enter:", label)
	accessToken, err := readSecret()
	if err != nil {
		return credstore.Record{}, err
	}
	log.Infof("paste the %s refresh token, or leave blank:", label)
	refreshToken, err := readLine()
	if err != nil {
		return credstore.Record{}, err
	}
	return credstore.Record{AccessToken: accessToken, RefreshToken: refreshToken, Extra: map[string]any{}}, nil
}

func readSecret() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		return string(raw), err
	}
	return readLine()
}

func readLine() (string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}
