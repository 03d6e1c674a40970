package kiro

import (
	"encoding/json"
	"time"

	"github.com/router-for-me/aigateway/internal/credstore"
)

// kiroFile mirrors the on-disk credential shape spec.md §6 specifies:
// {accessToken, refreshToken, expiresAt (RFC3339), profileArn, authMethod, provider}.
type kiroFile struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	ProfileArn   string `json:"profileArn,omitempty"`
	AuthMethod   string `json:"authMethod,omitempty"`
	Provider     string `json:"provider,omitempty"`
}

// DecodeCredentials parses Kiro's camelCase credential file shape into a
// credstore.Record, carrying profileArn/authMethod/provider in Extra.
func DecodeCredentials(raw []byte) (credstore.Record, error) {
	var f kiroFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return credstore.Record{}, err
	}
	rec := credstore.Record{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		Extra: map[string]any{
			"profileArn": f.ProfileArn,
			"authMethod": f.AuthMethod,
			"provider":   f.Provider,
		},
	}
	if f.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, f.ExpiresAt); err == nil {
			rec.ExpiresAt = &t
		}
	}
	return rec, nil
}

// EncodeCredentials renders a credstore.Record back to Kiro's on-disk shape.
func EncodeCredentials(rec credstore.Record) ([]byte, error) {
	f := kiroFile{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
	}
	if rec.ExpiresAt != nil {
		f.ExpiresAt = rec.ExpiresAt.Format(time.RFC3339)
	}
	if rec.Extra != nil {
		f.ProfileArn, _ = rec.Extra["profileArn"].(string)
		f.AuthMethod, _ = rec.Extra["authMethod"].(string)
		f.Provider, _ = rec.Extra["provider"].(string)
	}
	return json.MarshalIndent(f, "", "  ")
}
