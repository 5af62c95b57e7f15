// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package auth provides the MoveX credential store and token issuer.
//
// # Domain Types
//
// Accounts come in two kinds, riders (KindUser) and drivers (KindCaptain),
// sharing one shape. New accounts should be created with NewUser, which
// normalizes the email and requires an already computed password hash.
//
// Reads have two projections:
//   - User - the public view returned by every default read
//   - Credentials - User plus the password hash, returned only by
//     UserRepository.GetCredentialsByEmail for login
//
// # Services
//
// Service coordinates registration, login, token validation, logout and the
// presence socket id. It is created with NewService or NewServiceWithLogger,
// which validate dependencies.
//
// Tokens are HS256 JWTs minted by JWTIssuer. Their only private claim is the
// account id and they expire after TokenExpiry. Logout stores the SHA256 of
// the token in a RevocationStore until it expires; PruneWorker removes
// expired entries from stores that need it.
package auth
