// Package gemini implements the Gemini Code Assist adapter: OAuth2-refreshed
// credentials, automatic project-ID discovery/onboarding, and envelope
// unwrapping to the plain {candidates, usageMetadata, promptFeedback} shape
// callers expect. Grounded on
// _examples/original_source/rust/src/providers/gemini.rs.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/credstore"
)

const (
	codeAssistEndpoint  = "https://cloudcode-pa.googleapis.com"
	codeAssistAPIVer    = "v1internal"
	oauthTokenURL       = "https://oauth2.googleapis.com/token"
	oauthClientID       = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	oauthClientSecret   = "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"
	onboardPollInterval = 2 * time.Second
)

// callAPI performs one authenticated Code Assist RPC at /{version}/projects/{id}/locations/us-central1/cloudaicompanion:{method}.
func (a *Adapter) callAPI(ctx context.Context, method string, body map[string]any) (map[string]any, error) {
	projectID, err := a.ensureProjectID(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s/projects/%s/locations/us-central1/cloudaicompanion:%s",
		codeAssistEndpoint, codeAssistAPIVer, url.PathEscape(projectID), method)

	accessToken, err := a.freshAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, common.Transport(err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.Upstream(resp.StatusCode, string(respBody))
	}

	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, common.Upstream(resp.StatusCode, "non-JSON code assist response")
	}
	return out, nil
}

// freshAccessToken ensures the held credential is unexpired and returns its
// access token.
func (a *Adapter) freshAccessToken(ctx context.Context) (string, error) {
	if err := a.Store.EnsureFresh(ctx); err != nil {
		return "", common.AuthFailed("gemini credential refresh failed", err)
	}
	return a.Store.Current().AccessToken, nil
}

// ensureProjectID returns the configured project ID, discovering and
// onboarding one against Code Assist the first time it's needed.
func (a *Adapter) ensureProjectID(ctx context.Context) (string, error) {
	a.projectMu.Lock()
	defer a.projectMu.Unlock()
	if a.projectID != "" {
		return a.projectID, nil
	}
	if id := metadataProjectID(ctx); id != "" {
		a.projectID = id
		return id, nil
	}
	id, err := a.discoverProjectID(ctx)
	if err != nil {
		return "", err
	}
	a.projectID = id
	return id, nil
}

// metadataProjectID falls back to GCE metadata when running on Google Cloud
// and no explicit or OAuth-discovered project is configured.
func metadataProjectID(ctx context.Context) string {
	if !metadata.OnGCE() {
		return ""
	}
	id, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return ""
	}
	return id
}

func (a *Adapter) discoverProjectID(ctx context.Context) (string, error) {
	resp, err := a.callAPIUnlocked(ctx, "loadCodeAssist", map[string]any{
		"metadata": map[string]any{"pluginType": "GEMINI"},
	})
	if err != nil {
		return "", err
	}
	if project, ok := resp["cloudaicompanionProject"].(string); ok && project != "" {
		return project, nil
	}

	tierID := "free-tier"
	if tiers, ok := resp["allowedTiers"].([]any); ok {
		for _, t := range tiers {
			tm, ok := t.(map[string]any)
			if !ok {
				continue
			}
			if isDefault, _ := tm["isDefault"].(bool); isDefault {
				if id, ok := tm["id"].(string); ok {
					tierID = id
				}
				break
			}
		}
	}

	onboardReq := map[string]any{
		"tierId":                 tierID,
		"metadata":               map[string]any{"pluginType": "GEMINI"},
		"cloudaicompanionProject": "default",
	}

	lro, err := a.callAPIUnlocked(ctx, "onboardUser", onboardReq)
	if err != nil {
		return "", err
	}
	for {
		if done, _ := lro["done"].(bool); done {
			break
		}
		select {
		case <-time.After(onboardPollInterval):
		case <-ctx.Done():
			return "", common.Cancelled()
		}
		lro, err = a.callAPIUnlocked(ctx, "onboardUser", onboardReq)
		if err != nil {
			return "", err
		}
	}

	response, _ := lro["response"].(map[string]any)
	project, _ := response["cloudaicompanionProject"].(map[string]any)
	id, _ := project["id"].(string)
	if id == "" {
		return "", common.Upstream(0, "onboarding response missing project id")
	}
	return id, nil
}

// callAPIUnlocked is callAPI without the project-ID resolution step, used
// while ensureProjectID already holds projectMu during discovery.
func (a *Adapter) callAPIUnlocked(ctx context.Context, method string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s/cloudaicompanion:%s", codeAssistEndpoint, codeAssistAPIVer, method)

	accessToken, err := a.freshAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, common.Transport(err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.Upstream(resp.StatusCode, string(respBody))
	}
	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, common.Upstream(resp.StatusCode, "non-JSON code assist response")
	}
	return out, nil
}

// NewRefreshFunc adapts the Gemini OAuth token exchange to credstore's
// RefreshFunc shape, for use constructing the Store this adapter reads from.
func NewRefreshFunc(client *http.Client) credstore.RefreshFunc {
	return func(ctx context.Context, current credstore.Record) (credstore.Record, error) {
		if current.RefreshToken == "" {
			return current, common.AuthFailed("no gemini refresh token available", nil)
		}
		accessToken, expiresIn, err := refreshOAuthToken(ctx, client, current.RefreshToken)
		if err != nil {
			return current, err
		}
		updated := current
		updated.AccessToken = accessToken
		expiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
		updated.ExpiresAt = &expiry
		return updated, nil
	}
}

// refreshOAuthToken exchanges the stored refresh token for a new access
// token per the OAuth client credentials baked into the Gemini CLI.
func refreshOAuthToken(ctx context.Context, client *http.Client, refreshToken string) (accessToken string, expiresIn int64, err error) {
	form := url.Values{
		"client_id":     {oauthClientID},
		"client_secret": {oauthClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, common.Transport(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, common.AuthFailed("gemini token refresh failed", common.Upstream(resp.StatusCode, string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, err
	}
	return parsed.AccessToken, parsed.ExpiresIn, nil
}

// OAuthAuthURL is the installed-app authorization endpoint used by the
// Gemini CLI's own OAuth client, for login flows that open a browser and
// catch the redirect on a loopback listener.
const OAuthAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// OAuthScope is the scope the Gemini CLI requests for Code Assist access.
const OAuthScope = "https://www.googleapis.com/auth/cloud-platform https://www.googleapis.com/auth/userinfo.email"

// OAuthClientID exposes the installed-app client id used throughout this
// package's refresh flow, for login.go to build the authorization URL with.
func OAuthClientID() string { return oauthClientID }

// ExchangeAuthCode trades an authorization code obtained from a completed
// browser OAuth flow for an access/refresh token pair.
func ExchangeAuthCode(ctx context.Context, client *http.Client, code, redirectURI string) (credstore.Record, error) {
	form := url.Values{
		"client_id":     {oauthClientID},
		"client_secret": {oauthClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return credstore.Record{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return credstore.Record{}, common.Transport(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return credstore.Record{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return credstore.Record{}, common.AuthFailed("gemini auth code exchange failed", common.Upstream(resp.StatusCode, string(body)))
	}

	var parsed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return credstore.Record{}, err
	}
	expiry := time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	return credstore.Record{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    &expiry,
	}, nil
}
