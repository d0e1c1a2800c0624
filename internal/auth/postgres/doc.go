// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package postgres implements the auth repositories using PostgreSQL.
package postgres
