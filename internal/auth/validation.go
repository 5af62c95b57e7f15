// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Account field constraints.
const (
	MinFirstNameLength = 3
	MinLastNameLength  = 3
	MinEmailLength     = 5
	MinPasswordLength  = 6

	// bcrypt ignores input beyond 72 bytes.
	MaxPasswordBytes = 72
)

// Field names used as keys in ValidationError.Fields. They mirror the JSON
// paths of the request bodies.
const (
	FieldFirstName = "fullname.firstname"
	FieldLastName  = "fullname.lastname"
	FieldEmail     = "email"
	FieldPassword  = "password"
)

// ValidationError reports per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors returns the per-field problems.
func (e *ValidationError) FieldErrors() map[string]string { return e.Fields }

// Add records a problem for field. The first problem per field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns e when it holds at least one problem, else nil.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Registration is the input of a sign-up.
type Registration struct {
	Kind     Kind
	FullName FullName
	Email    string
	Password string
}

// LoginInput is the input of a sign-in.
type LoginInput struct {
	Kind     Kind
	Email    string
	Password string
}

// ValidateRegistration checks every field of r and returns a
// *ValidationError listing all problems, or nil.
func ValidateRegistration(r Registration) error {
	v := &ValidationError{}

	first := strings.TrimSpace(r.FullName.FirstName)
	switch {
	case first == "":
		v.Add(FieldFirstName, "First name is required")
	case utf8.RuneCountInString(first) < MinFirstNameLength:
		v.Add(FieldFirstName, fmt.Sprintf("First name must be at least %d characters long", MinFirstNameLength))
	}

	last := strings.TrimSpace(r.FullName.LastName)
	if last != "" && utf8.RuneCountInString(last) < MinLastNameLength {
		v.Add(FieldLastName, fmt.Sprintf("Last name must be at least %d characters long", MinLastNameLength))
	}

	validateEmail(v, r.Email)
	validatePassword(v, r.Password, true)

	return v.Err()
}

// ValidateLogin checks the presence and shape of login fields. Length rules
// for the password are not applied so that accounts created under older
// rules can still sign in.
func ValidateLogin(in LoginInput) error {
	v := &ValidationError{}
	validateEmail(v, in.Email)
	validatePassword(v, in.Password, false)
	return v.Err()
}

func validateEmail(v *ValidationError, email string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		v.Add(FieldEmail, "Email is required")
	case utf8.RuneCountInString(email) < MinEmailLength:
		v.Add(FieldEmail, fmt.Sprintf("Email must be at least %d characters long", MinEmailLength))
	case !IsEmail(email):
		v.Add(FieldEmail, "Invalid email")
	}
}

func validatePassword(v *ValidationError, password string, strict bool) {
	switch {
	case password == "":
		v.Add(FieldPassword, "Password is required")
	case strict && utf8.RuneCountInString(password) < MinPasswordLength:
		v.Add(FieldPassword, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	case len(password) > MaxPasswordBytes:
		v.Add(FieldPassword, fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordBytes))
	}
}

// IsEmail reports whether s is a bare address such as a@b.co. Display-name
// forms like "A <a@b.co>" are rejected.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// validationFailed wraps a *ValidationError with the validation code.
func validationFailed(err error) error {
	return oops.Code("AUTH_VALIDATION_FAILED").Wrap(err)
}
