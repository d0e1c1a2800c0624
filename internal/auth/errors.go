// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateAccount is returned when an account insert collides with an
// existing username or email. Repositories map the storage unique-constraint
// violation to this sentinel; it is the authoritative duplicate signal, not
// any pre-check query.
var ErrDuplicateAccount = errors.New("username or email already in use")
