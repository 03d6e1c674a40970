package gemini

import (
	"encoding/json"
	"time"

	"github.com/router-for-me/aigateway/internal/credstore"
)

// geminiFile mirrors spec.md §6's Gemini credential shape:
// {access_token, refresh_token, expiry_date (epoch seconds), token_type}.
type geminiFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

func DecodeCredentials(raw []byte) (credstore.Record, error) {
	var f geminiFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return credstore.Record{}, err
	}
	rec := credstore.Record{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		Extra:        map[string]any{"token_type": f.TokenType},
	}
	if f.ExpiryDate > 0 {
		t := time.Unix(f.ExpiryDate, 0)
		rec.ExpiresAt = &t
	}
	return rec, nil
}

func EncodeCredentials(rec credstore.Record) ([]byte, error) {
	f := geminiFile{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
	}
	if rec.ExpiresAt != nil {
		f.ExpiryDate = rec.ExpiresAt.Unix()
	}
	if rec.Extra != nil {
		f.TokenType, _ = rec.Extra["token_type"].(string)
	}
	return json.MarshalIndent(f, "", "  ")
}
