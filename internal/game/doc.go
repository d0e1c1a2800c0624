// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

// Package game holds the gameplay records that registration creates
// atomically alongside an account: the bank account, the enlistment ledger
// entry, and the new-recruit achievement grant. It also provides the rank
// lookup table used to display rank names and compute experience progress.
//
// Monetary amounts are stored as int64 agorot to keep arithmetic exact.
package game
