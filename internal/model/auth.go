package model

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are JWT claims for administrator authentication
type AdminClaims struct {
	AdminID  string `json:"adminId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token     string `json:"token"`
	AdminID   string `json:"adminId"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}
