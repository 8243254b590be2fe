package models

import (
	"encoding/json"
	"time"
)

// Profile is the front-end profile document stored per identity provider
// subject (openId). The document itself is opaque to the API.
type Profile struct {
	OpenID    string          `db:"open_id" json:"openId"`
	Data      json.RawMessage `db:"data" json:"profile"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// SaveProfileRequest is the payload of POST /auth/profile.
type SaveProfileRequest struct {
	OpenID  string         `json:"openId" validate:"required"`
	Profile map[string]any `json:"profile" validate:"required"`
}
