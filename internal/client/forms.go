// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package client

import (
	"strings"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/pkg/api"
)

// SignUpForm holds sign-up input. Riders and captains use the same form.
type SignUpForm struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Validate applies the server's field rules locally. It returns a
// *auth.ValidationError keyed like the server's response.
func (f *SignUpForm) Validate() error {
	return auth.ValidateRegistration(auth.Registration{
		Kind:     auth.KindUser,
		FullName: auth.FullName{FirstName: f.FirstName, LastName: f.LastName},
		Email:    f.Email,
		Password: f.Password,
	})
}

// Reset clears every field.
func (f *SignUpForm) Reset() { *f = SignUpForm{} }

func (f *SignUpForm) request() api.RegisterRequest {
	return api.RegisterRequest{
		FullName: api.FullName{
			FirstName: strings.TrimSpace(f.FirstName),
			LastName:  strings.TrimSpace(f.LastName),
		},
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
}

// LoginForm holds sign-in input.
type LoginForm struct {
	Email    string
	Password string
}

// Validate checks that both fields are present and the email is well formed.
func (f *LoginForm) Validate() error {
	return auth.ValidateLogin(auth.LoginInput{
		Kind:     auth.KindUser,
		Email:    f.Email,
		Password: f.Password,
	})
}

// Reset clears every field.
func (f *LoginForm) Reset() { *f = LoginForm{} }

func (f *LoginForm) request() api.LoginRequest {
	return api.LoginRequest{Email: strings.TrimSpace(f.Email), Password: f.Password}
}
