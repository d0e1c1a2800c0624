// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package auth provides account and session primitives for Garrison.
//
// # Domain Types
//
// Domain types (Account, Session, RememberToken) should be created using
// their respective constructors:
//   - NewAccount - creates an Account with validated username and password hash
//   - NewSession - creates a Session with validated account and expiry
//   - NewRememberToken - creates a RememberToken with validated account and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - RegistrationService - input validation and atomic account creation
//   - Service - login, logout, session validation and extension
//
// Services are created with New*Service constructors that validate dependencies.
package auth
