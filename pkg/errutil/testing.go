// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}

// fieldErrors is implemented by errors that report problems per input field,
// such as validation failures and the API errors that carry them.
type fieldErrors interface {
	FieldErrors() map[string]string
}

// AssertFieldErrors asserts that err carries per-field problems for exactly
// the given fields.
func AssertFieldErrors(t *testing.T, err error, fields ...string) {
	t.Helper()
	var fe fieldErrors
	require.True(t, errors.As(err, &fe), "expected field errors, got %T", err)
	got := make([]string, 0, len(fe.FieldErrors()))
	for field, msg := range fe.FieldErrors() {
		assert.NotEmpty(t, msg, "field %s has no message", field)
		got = append(got, field)
	}
	assert.ElementsMatch(t, fields, got)
}
