// Package auth wires the signup guard, the identity provider, and the record
// store into the account flows: signup, login, and token refresh. This file
// defines the request and response payloads for those endpoints.
package auth

import "github.com/user/quizcraft-go/userstore"

// SignupRequest represents the signup form submission.
type SignupRequest struct {
	Name            string `json:"name" example:"Jordan Quinn"`
	Email           string `json:"email" example:"jordan@example.com"`
	Password        string `json:"password" example:"Str0ng!pass"`
	ConfirmPassword string `json:"confirm_password" example:"Str0ng!pass"`
	// Role is "student" or "instructor"; empty defaults to student.
	Role string `json:"role" example:"student"`
}

// SignupResponse is returned on successful account creation.
type SignupResponse struct {
	Message string         `json:"message" example:"Account created successfully"`
	Player  *userstore.Row `json:"player"`
}

// LoginRequest represents the sign-in form submission.
type LoginRequest struct {
	Email    string `json:"email" example:"jordan@example.com"`
	Password string `json:"password" example:"Str0ng!pass"`
}

// RefreshTokenRequest represents the token refresh payload.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"def50200..."`
}
