package qwen

import (
	"encoding/json"
	"time"

	"github.com/router-for-me/aigateway/internal/credstore"
)

// qwenFile mirrors spec.md §6's Qwen credential shape:
// {access_token, refresh_token, expiry_date}.
type qwenFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
}

func DecodeCredentials(raw []byte) (credstore.Record, error) {
	var f qwenFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return credstore.Record{}, err
	}
	rec := credstore.Record{AccessToken: f.AccessToken, RefreshToken: f.RefreshToken}
	if f.ExpiryDate > 0 {
		t := time.Unix(f.ExpiryDate, 0)
		rec.ExpiresAt = &t
	}
	return rec, nil
}

func EncodeCredentials(rec credstore.Record) ([]byte, error) {
	f := qwenFile{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}
	if rec.ExpiresAt != nil {
		f.ExpiryDate = rec.ExpiresAt.Unix()
	}
	return json.MarshalIndent(f, "", "  ")
}
