package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the claims accepted on bearer tokens for the HTTP surfaces.
type JWTClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	ID     string   `json:"id"`
	Method string   `json:"method"`
	Scopes []string `json:"scopes,omitempty"`
}
