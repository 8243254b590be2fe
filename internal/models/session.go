package models

import "github.com/golang-jwt/jwt/v5"

// Session is the signed-in state carried by the session cookie.
type Session struct {
	// Identifier is the username or email the user signed in with.
	Identifier string
	// Token is the LMS user token issued at login.
	Token string
}

// SessionClaims is the JWT payload of the session cookie.
type SessionClaims struct {
	Identifier string `json:"idn"`
	LMSToken   string `json:"lms"`
	jwt.RegisteredClaims
}
